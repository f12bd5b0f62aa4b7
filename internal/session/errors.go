package session

import "errors"

var (
	// ErrNotFound reports an unknown or already deleted session or file.
	ErrNotFound = errors.New("not found")
	// ErrInvalidID reports a session ID that is not a canonical UUID.
	ErrInvalidID = errors.New("invalid session id")
	// ErrInvalidName reports a file name that cannot refer to a session file.
	ErrInvalidName = errors.New("invalid file name")
	// ErrUnsupportedType reports an upload with a disallowed extension.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge reports an upload over the size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrBusy reports a session locked by a concurrent merge or cleanup.
	ErrBusy = errors.New("session busy")
	// ErrEmptyArtifact reports a zero-byte merge artifact.
	ErrEmptyArtifact = errors.New("file is empty")
)
