package mediatypes

import "testing"

func TestNormalizeExtension(t *testing.T) {
	tests := map[string]string{
		"mp3":    ".mp3",
		".MP3":   ".mp3",
		" Wav ":  ".wav",
		"":       "",
		".flac":  ".flac",
		"tar.gz": ".tar.gz",
	}
	for in, want := range tests {
		if got := NormalizeExtension(in); got != want {
			t.Errorf("NormalizeExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".mp3", "audio/mpeg"},
		{"MP3", "audio/mpeg"},
		{"wav", "audio/wav"},
		{".m4a", "audio/mp4"},
		{".flac", "audio/flac"},
		{".ogg", "audio/ogg"},
		{".txt", "application/octet-stream"},
		{"", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := GetMimeType(tt.ext); got != tt.want {
				t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestIsAudioExtension(t *testing.T) {
	for _, ext := range []string{"mp3", "wav", "ogg", "m4a", "aac", "flac"} {
		if !IsAudioExtension(ext) {
			t.Errorf("IsAudioExtension(%q) = false", ext)
		}
	}
	for _, ext := range []string{"exe", ".jpg", "", "mp"} {
		if IsAudioExtension(ext) {
			t.Errorf("IsAudioExtension(%q) = true", ext)
		}
	}
}

func TestAudioMimeTypesAreAudio(t *testing.T) {
	for ext, mime := range AudioMimeTypes {
		if ext != NormalizeExtension(ext) {
			t.Errorf("key %q is not normalized", ext)
		}
		if len(mime) < 6 || mime[:6] != "audio/" {
			t.Errorf("%s maps to %q", ext, mime)
		}
	}
}
