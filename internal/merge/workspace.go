package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"audio-merger/internal/logging"
	"audio-merger/internal/metrics"
)

// WorkspacePrefix starts the name of every workspace directory.
const WorkspacePrefix = ".merge-"

// Workspace is a scratch directory owned by exactly one merge.
type Workspace struct {
	path string

	once sync.Once
	err  error
}

// AcquireWorkspace creates a fresh, uniquely named workspace below parent.
func AcquireWorkspace(parent string) (*Workspace, error) {
	dir, err := os.MkdirTemp(parent, WorkspacePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace in %s: %w", parent, err)
	}
	return &Workspace{path: dir}, nil
}

// Path returns the workspace directory.
func (w *Workspace) Path() string {
	return w.path
}

// File returns the path of name inside the workspace.
func (w *Workspace) File(name string) string {
	return filepath.Join(w.path, name)
}

// Release removes the workspace and everything in it. It is safe to call
// more than once; later calls return the first result.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.path); err != nil {
			metrics.WorkspaceCleanupErrors.Inc()
			w.err = fmt.Errorf("failed to remove workspace %s: %w", w.path, err)
			logging.Warn("%v", w.err)
			return
		}
		logging.Debug("Cleaned up workspace %s", w.path)
	})
	return w.err
}
