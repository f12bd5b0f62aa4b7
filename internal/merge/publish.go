package merge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"audio-merger/internal/logging"
)

// maxNameAttempts bounds the collision suffixes tried for generated names.
const maxNameAttempts = 1000

// publish moves the verified file at src into dir without replacing any
// existing file. When exact is true name is used as-is; otherwise a
// "_<n>" suffix is added before the extension until a free name is found.
func publish(src, dir, name string, exact bool) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 0; n < maxNameAttempts; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		dst := filepath.Join(dir, candidate)

		err := placeNoClobber(src, dst)
		if err == nil {
			return dst, nil
		}
		if !errors.Is(err, os.ErrExist) || exact {
			return "", err
		}
	}
	return "", fmt.Errorf("no free output name for %s after %d attempts", name, maxNameAttempts)
}

// placeNoClobber makes src visible at dst only if dst does not exist.
// A hard link gives that atomically; filesystems without hard links fall
// back to a checked rename.
func placeNoClobber(src, dst string) error {
	err := os.Link(src, dst)
	if err == nil {
		// dst is complete; the workspace release removes src regardless.
		if rmErr := os.Remove(src); rmErr != nil {
			logging.Debug("Failed to unlink published source %s: %v", src, rmErr)
		}
		return nil
	}
	if errors.Is(err, os.ErrExist) {
		return err
	}

	if _, statErr := os.Lstat(dst); statErr == nil {
		return &os.LinkError{Op: "publish", Old: src, New: dst, Err: os.ErrExist}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return statErr
	}
	return os.Rename(src, dst)
}
