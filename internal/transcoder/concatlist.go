package transcoder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsafePath is returned for paths the concat list grammar cannot carry.
var ErrUnsafePath = errors.New("path cannot be represented in a concat list")

// QuoteConcatPath renders path as a quoted concat demuxer token.
//
// Backslashes become forward slashes. A single quote cannot appear inside
// a quoted token, so it closes the token, is emitted escaped, and a new
// token is opened: it's -> 'it'\''s'.
func QuoteConcatPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	if strings.ContainsAny(path, "\r\n\x00") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, path)
	}
	safe := strings.ReplaceAll(path, `\`, "/")
	return "'" + strings.ReplaceAll(safe, "'", `'\''`) + "'", nil
}

// FormatConcatList renders one "file" directive per path, in order.
func FormatConcatList(paths []string) ([]byte, error) {
	var buf bytes.Buffer
	for _, p := range paths {
		quoted, err := QuoteConcatPath(p)
		if err != nil {
			return nil, err
		}
		buf.WriteString("file ")
		buf.WriteString(quoted)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// ParseConcatList returns the file paths listed in a concat list, in order.
// It understands the subset written by FormatConcatList: the optional
// version header, comments, and "file" directives with quoted or bare
// tokens.
func ParseConcatList(data []byte) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "ffconcat ") {
			continue
		}
		directive, rest, _ := strings.Cut(text, " ")
		if directive != "file" {
			return nil, fmt.Errorf("concat list line %d: unsupported directive %q", line, directive)
		}
		path, err := unquoteToken(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("concat list line %d: %w", line, err)
		}
		paths = append(paths, path)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

func unquoteToken(tok string) (string, error) {
	var b strings.Builder
	inQuote := false
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
		case c == '\\' && !inQuote:
			if i+1 >= len(tok) {
				return "", errors.New("dangling escape")
			}
			i++
			b.WriteByte(tok[i])
		default:
			b.WriteByte(c)
		}
	}
	if inQuote {
		return "", errors.New("unterminated quote")
	}
	if b.Len() == 0 {
		return "", errors.New("empty file token")
	}
	return b.String(), nil
}
