// Package main provides the entry point of the audio merger server.
//
// The server accepts audio clip uploads into per-session directories,
// merges the clips of a session into one MP3 with ffmpeg and serves the
// result for download.
//
// # Application Lifecycle
//
//  1. Memory: GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
//  2. Configuration Loading: defaults, optional CONFIG_FILE (YAML or TOML),
//     then environment variables
//  3. Database Initialization: SQLite index of sessions, clips and merges
//  4. Media Tools: locates ffmpeg and ffprobe and logs their version
//  5. Component Initialization:
//     - Merge orchestrator with a bounded normalization pool
//     - Session store over UPLOAD_DIR
//     - Session janitor removing idle sessions
//     - Metrics collector publishing storage gauges
//  6. HTTP Server Setup: routes, request ID, access log and metrics middleware
//  7. Graceful Shutdown: handles SIGINT/SIGTERM
//
// # HTTP Servers
//
//  1. Main Server (default port 5000):
//     - POST /upload, POST /merge
//     - GET /download/{session_id}/{filename}
//     - GET|POST /cleanup/{session_id}
//     - GET|DELETE /api/sessions/{session_id}
//     - /health, /healthz, /livez, /readyz, /version
//     - Static front-end from STATIC_DIR
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//     - Liveness endpoint (/health)
//
// # Environment Variables
//
//   - UPLOAD_DIR: Session directories (default: ./uploads)
//   - DATABASE_DIR: SQLite database directory (default: ./data)
//   - STATIC_DIR: Front-end files (default: ./static)
//   - PORT, METRICS_PORT, METRICS_ENABLED
//   - MAX_FILE_SIZE: Per-file upload limit (default: 100MB)
//   - ALLOWED_EXTENSIONS: Accepted clip types (default: mp3,wav,ogg,m4a,aac,flac)
//   - FFMPEG_PATH, FFPROBE_PATH
//   - PROBE_TIMEOUT, NORMALIZE_TIMEOUT, CONCAT_TIMEOUT
//   - MERGE_WORKERS: Concurrent normalizations per merge
//   - SESSION_TTL, CLEANUP_INTERVAL
//   - DEFAULT_BITRATE (default: 192k)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//   - MEMORY_LIMIT, MEMORY_RATIO: Go heap limit (default ratio: 0.5)
//
// # Graceful Shutdown
//
//  1. Stop the session janitor and metrics collector
//  2. Shut down the metrics server
//  3. Kill running ffmpeg processes so in-flight merges fail and clean up
//  4. Shut down the main HTTP server (30s timeout)
//  5. Close the database
//
// # Related Packages
//
//   - [audio-merger/internal/merge]: Merge pipeline
//   - [audio-merger/internal/transcoder]: ffmpeg and ffprobe invocation
//   - [audio-merger/internal/session]: Session directories and uploads
//   - [audio-merger/internal/handlers]: HTTP request handlers
//   - [audio-merger/internal/startup]: Configuration and initialization
package main
