// Package database provides SQLite storage for upload sessions.
//
// It records:
//   - Sessions and when they were last used
//   - Uploaded clips with their size and probed duration
//   - Merge history, including failed merges with their stage and kind
//
// The session directory on disk holds the audio itself; the database is the
// index the expiry janitor and the session API read from. The database uses
// WAL mode and enforces foreign keys so that deleting a session removes its
// clips and merges.
package database
