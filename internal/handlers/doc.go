// Package handlers provides the HTTP handlers of the audio merger API.
//
// It includes handlers for:
//   - Clip uploads into per-session directories
//   - Merge requests and merged file downloads
//   - Session inspection and cleanup
//   - Health checks and version information
package handlers
