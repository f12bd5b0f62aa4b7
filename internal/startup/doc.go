// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] starts from [DefaultConfig], applies the optional file named
// by CONFIG_FILE (YAML, or TOML when the name ends in .toml) and then the
// environment variables below:
//
//   - UPLOAD_DIR: Session directories (default: ./uploads)
//   - DATABASE_DIR: Database directory (default: ./data)
//   - STATIC_DIR: Web interface files (default: ./static)
//   - PORT: HTTP server port (default: 5000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - MAX_FILE_SIZE: Per-file upload limit, e.g. 100MB (default: 100MB)
//   - ALLOWED_EXTENSIONS: Comma separated upload extensions (default: mp3,wav,ogg,m4a,aac,flac)
//   - FFMPEG_PATH, FFPROBE_PATH: Media tool binaries (default: ffmpeg, ffprobe)
//   - PROBE_TIMEOUT, NORMALIZE_TIMEOUT, CONCAT_TIMEOUT: Per-invocation limits (default: 30s, 5m, 10m)
//   - MERGE_WORKERS: Parallel clip normalizations (default: CPU count, at most 4)
//   - DEFAULT_BITRATE: Output bitrate when a request names none (default: 192k)
//   - SESSION_TTL: Idle time before a session is deleted (default: 24h)
//   - CLEANUP_INTERVAL: How often expired sessions are swept (default: 1h)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// Invalid values fall back to their default with a warning; [ValidateConfig]
// then rejects combinations the server cannot run with.
//
// # Directory Setup
//
// The upload and database directories are created if missing and must be
// writable. A missing static directory only disables the web interface.
package startup
