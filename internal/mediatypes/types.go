package mediatypes

import "strings"

// AudioMimeTypes maps the audio extensions ffmpeg is expected to decode to
// their MIME types.
var AudioMimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".wma":  "audio/x-ms-wma",
	".aiff": "audio/aiff",
	".aif":  "audio/aiff",
	".webm": "audio/webm",
}

// NormalizeExtension lowercases ext and adds the leading dot, so "MP3",
// "mp3" and ".mp3" all become ".mp3".
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// GetMimeType returns the MIME type for a file extension, or
// "application/octet-stream" if the extension is not a known audio type.
func GetMimeType(ext string) string {
	if mime, ok := AudioMimeTypes[NormalizeExtension(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsAudioExtension reports whether ext is a known audio extension.
func IsAudioExtension(ext string) bool {
	_, ok := AudioMimeTypes[NormalizeExtension(ext)]
	return ok
}
