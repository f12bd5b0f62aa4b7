package merge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"audio-merger/internal/transcoder"
)

// ManifestName is the concat list written into each workspace.
const ManifestName = "filelist.txt"

// BuildManifest renders the concat list for paths, one entry per line, in
// the given order.
func BuildManifest(paths []string) ([]byte, error) {
	if len(paths) == 0 {
		return nil, errors.New("manifest needs at least one entry")
	}
	return transcoder.FormatConcatList(paths)
}

// WriteManifest writes the concat list for paths into dir and returns its
// path.
func WriteManifest(dir string, paths []string) (string, error) {
	data, err := BuildManifest(paths)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}
