package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"audio-merger/internal/database"
	"audio-merger/internal/logging"
	"audio-merger/internal/metrics"
)

// Prober reads a best-effort duration in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) float64
}

// Index is the session bookkeeping the store keeps in sync with the disk.
type Index interface {
	CreateSession(ctx context.Context, id string, now time.Time) error
	GetSession(ctx context.Context, id string) (*database.Session, error)
	TouchSession(ctx context.Context, id string, now time.Time) error
	DeleteSession(ctx context.Context, id string) error
	AddClip(ctx context.Context, clip database.ClipRecord) error
	ListClips(ctx context.Context, sessionID string) ([]database.ClipRecord, error)
	RecordMerge(ctx context.Context, m database.MergeRecord) error
	ListMerges(ctx context.Context, sessionID string) ([]database.MergeRecord, error)
	ExpiredSessions(ctx context.Context, cutoff time.Time) ([]string, error)
}

var _ Index = (*database.Database)(nil)

// Config configures a Store.
type Config struct {
	Root              string
	MaxFileSize       int64
	AllowedExtensions []string
	TTL               time.Duration
	// LockTimeout bounds how long a merge or upload waits for the shared
	// lock while a cleanup holds the session.
	LockTimeout time.Duration
	Now         func() time.Time
}

// Store owns the session directories under Config.Root.
type Store struct {
	root        string
	maxFileSize int64
	allowed     map[string]struct{}
	ttl         time.Duration
	lockTimeout time.Duration
	now         func() time.Time

	index Index
	probe Prober
}

// UploadedFile describes a stored clip.
type UploadedFile struct {
	Filename        string  `json:"filename"`
	Size            string  `json:"size"`
	SizeBytes       int64   `json:"size_bytes"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Info is the state of a session.
type Info struct {
	ID         string                 `json:"session_id"`
	CreatedAt  time.Time              `json:"created_at"`
	LastActive time.Time              `json:"last_active"`
	Clips      []database.ClipRecord  `json:"clips"`
	Merges     []database.MergeRecord `json:"merges"`
}

// NewStore creates the upload root if needed and returns a Store over it.
func NewStore(cfg Config, index Index, probe Prober) (*Store, error) {
	if cfg.Root == "" {
		return nil, errors.New("session root is required")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store{
		root:        cfg.Root,
		maxFileSize: cfg.MaxFileSize,
		allowed:     allowed,
		ttl:         cfg.TTL,
		lockTimeout: cfg.LockTimeout,
		now:         cfg.Now,
		index:       index,
		probe:       probe,
	}, nil
}

// Root returns the upload root.
func (s *Store) Root() string {
	return s.root
}

// Allowed reports whether name has an allowed extension.
func (s *Store) Allowed(name string) bool {
	_, ok := s.allowed[extension(name)]
	return ok
}

// Create starts a new, empty session.
func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := os.Mkdir(filepath.Join(s.root, id), 0o755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := s.index.CreateSession(ctx, id, s.now()); err != nil {
		os.RemoveAll(filepath.Join(s.root, id))
		return "", err
	}
	metrics.SessionsCreated.Inc()
	logging.Debug("Created session %s", id)
	return id, nil
}

// Dir returns the directory of session id.
func (s *Store) Dir(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, id)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return dir, nil
}

// Touch records activity on a session, re-indexing it if the record was
// lost.
func (s *Store) Touch(ctx context.Context, id string) error {
	err := s.index.TouchSession(ctx, id, s.now())
	if errors.Is(err, database.ErrSessionNotFound) {
		return s.index.CreateSession(ctx, id, s.now())
	}
	return err
}

// Save stores one uploaded clip in session id under its sanitized name.
// A clip with the same name is replaced.
func (s *Store) Save(ctx context.Context, id, filename string, r io.Reader) (*UploadedFile, error) {
	name := SanitizeFilename(filename)
	if name == "" || !s.Allowed(name) {
		metrics.UploadsTotal.WithLabelValues("unsupported").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Base(filename))
	}

	release, err := s.AcquireShared(ctx, id)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	defer release()

	dir := filepath.Join(s.root, id)
	size, err := s.writeUpload(dir, name, r)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			metrics.UploadsTotal.WithLabelValues("too_large").Inc()
		} else {
			metrics.UploadsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	path := filepath.Join(dir, name)
	duration := 0.0
	if s.probe != nil {
		duration = s.probe.Duration(ctx, path)
	}

	if err := s.index.AddClip(ctx, database.ClipRecord{
		SessionID:       id,
		Filename:        name,
		SizeBytes:       size,
		DurationSeconds: duration,
		UploadedAt:      s.now(),
	}); err != nil {
		logging.Warn("Failed to index clip %s in session %s: %v", name, id, err)
	}
	if err := s.Touch(ctx, id); err != nil {
		logging.Warn("Failed to touch session %s: %v", id, err)
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	metrics.UploadBytes.Add(float64(size))
	logging.Debug("Stored %s in session %s (%d bytes, %.1fs)", name, id, size, duration)

	return &UploadedFile{
		Filename:        name,
		Size:            FormatSize(size),
		SizeBytes:       size,
		Duration:        FormatDuration(duration),
		DurationSeconds: duration,
	}, nil
}

// writeUpload copies r into dir/name through a temporary file.
func (s *Store) writeUpload(dir, name string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	tmpPath := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			os.Remove(tmpPath)
		}
	}()

	src := r
	if s.maxFileSize > 0 {
		src = io.LimitReader(r, s.maxFileSize+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write upload: %w", err)
	}
	if s.maxFileSize > 0 && n > s.maxFileSize {
		return 0, fmt.Errorf("%w: %s exceeds %s", ErrTooLarge, name, FormatSize(s.maxFileSize))
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return 0, fmt.Errorf("failed to store upload: %w", err)
	}
	keep = true
	return n, nil
}

// Resolve maps clip names of session id to paths, keeping order and
// duplicates. Existence is checked by the merge itself.
func (s *Store) Resolve(id string, names []string) ([]string, error) {
	dir, err := s.Dir(id)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		if !validName(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// Artifact returns the path and size of a downloadable merge artifact.
func (s *Store) Artifact(id, filename string) (string, int64, error) {
	if !validName(filename) || !strings.HasSuffix(filename, ".mp3") {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	dir, err := s.Dir(id)
	if err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, filename)
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", 0, fmt.Errorf("%s: %w", filename, ErrNotFound)
	}
	if info.Size() == 0 {
		return "", 0, fmt.Errorf("%s: %w", filename, ErrEmptyArtifact)
	}
	return path, info.Size(), nil
}

// Info returns the indexed state of session id.
func (s *Store) Info(ctx context.Context, id string) (*Info, error) {
	if _, err := s.Dir(id); err != nil {
		return nil, err
	}
	info := &Info{ID: id}
	rec, err := s.index.GetSession(ctx, id)
	switch {
	case err == nil:
		info.CreatedAt = rec.CreatedAt
		info.LastActive = rec.LastActive
	case !errors.Is(err, database.ErrSessionNotFound):
		return nil, err
	}

	if info.Clips, err = s.index.ListClips(ctx, id); err != nil {
		return nil, err
	}
	if info.Merges, err = s.index.ListMerges(ctx, id); err != nil {
		return nil, err
	}
	return info, nil
}

// RecordMerge stores a merge outcome for the session history.
func (s *Store) RecordMerge(ctx context.Context, rec database.MergeRecord) {
	if err := s.index.RecordMerge(ctx, rec); err != nil {
		logging.Warn("Failed to record merge %s: %v", rec.ID, err)
	}
	if err := s.Touch(ctx, rec.SessionID); err != nil {
		logging.Warn("Failed to touch session %s: %v", rec.SessionID, err)
	}
}

// Remove deletes session id with everything in it. It fails with ErrBusy
// while a merge or upload holds the session.
func (s *Store) Remove(ctx context.Context, id, reason string) error {
	lock, err := s.lockExclusive(id)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	if err := os.RemoveAll(filepath.Join(s.root, id)); err != nil {
		return fmt.Errorf("failed to remove session %s: %w", id, err)
	}
	if err := s.index.DeleteSession(ctx, id); err != nil {
		logging.Warn("Failed to delete session record %s: %v", id, err)
	}
	metrics.SessionsRemoved.WithLabelValues(reason).Inc()
	logging.Info("Removed session %s (%s)", id, reason)
	return nil
}

// ExpireIdle removes sessions idle for longer than the TTL, including
// directories the index does not know about. Busy sessions are skipped.
func (s *Store) ExpireIdle(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl)

	ids, err := s.index.ExpiredSessions(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	ids = append(ids, s.orphans(ctx, cutoff)...)

	removed := 0
	for _, id := range ids {
		err := s.Remove(ctx, id, "expired")
		switch {
		case err == nil:
			removed++
		case errors.Is(err, ErrBusy):
			logging.Debug("Skipping busy session %s", id)
		case errors.Is(err, ErrNotFound):
			if err := s.index.DeleteSession(ctx, id); err != nil {
				logging.Warn("Failed to delete stale session record %s: %v", id, err)
			}
		default:
			logging.Warn("Failed to expire session %s: %v", id, err)
		}
	}
	return removed, nil
}

// orphans lists session directories without a record that were last
// modified before cutoff.
func (s *Store) orphans(ctx context.Context, cutoff time.Time) []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		logging.Warn("Failed to scan upload directory: %v", err)
		return nil
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || ValidateID(e.Name()) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if _, err := s.index.GetSession(ctx, e.Name()); errors.Is(err, database.ErrSessionNotFound) {
			ids = append(ids, e.Name())
		}
	}
	return ids
}
