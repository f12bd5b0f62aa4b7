// Package session manages upload sessions on disk.
//
// Each session is a directory under the upload root named by a canonical
// UUID. Uploaded clips are sanitized, checked against the extension
// allow-list and size limit, written to a temporary file and renamed into
// place. Merge artifacts are published into the same directory.
//
// A lock file inside every session directory coordinates merges with
// deletion: merges and uploads hold a shared lock, while explicit cleanup
// and the expiry Janitor need the exclusive lock and report ErrBusy
// instead of waiting.
package session
