package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_merger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audio_merger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audio_merger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Merge pipeline metrics
var (
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_merger_merges_total",
			Help: "Total number of merge operations by outcome",
		},
		[]string{"status"}, // "success", "failed"
	)

	MergeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_merger_merge_failures_total",
			Help: "Total number of failed merges by stage and error kind",
		},
		[]string{"stage", "kind"},
	)

	MergeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audio_merger_merge_duration_seconds",
			Help:    "End-to-end merge duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	MergeStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audio_merger_merge_stage_duration_seconds",
			Help:    "Duration of each merge stage in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"stage"},
	)

	MergesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audio_merger_merges_in_progress",
			Help: "Number of merge operations currently running",
		},
	)

	MergeClipsPerRequest = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audio_merger_merge_clips",
			Help:    "Number of clips per merge request",
			Buckets: []float64{2, 3, 5, 10, 20, 50},
		},
	)

	MergeOutputBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audio_merger_merge_output_bytes_total",
			Help: "Total bytes of published merge artifacts",
		},
	)

	ClipsNormalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_merger_clips_normalized_total",
			Help: "Total number of clip normalizations by outcome",
		},
		[]string{"status"},
	)

	ProbeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audio_merger_probe_failures_total",
			Help: "Total number of probes that fell back to a zero duration",
		},
	)

	WorkspaceCleanupErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audio_merger_workspace_cleanup_errors_total",
			Help: "Total number of workspace directories that could not be removed",
		},
	)
)

// External tool metrics
var (
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_merger_tool_invocations_total",
			Help: "Total number of ffmpeg/ffprobe invocations by operation and outcome",
		},
		[]string{"operation", "status"}, // status: "success", "error", "timeout"
	)

	ToolInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audio_merger_tool_invocation_duration_seconds",
			Help:    "Duration of ffmpeg/ffprobe invocations in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		},
		[]string{"operation"},
	)
)

// Session and upload metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_merger_uploads_total",
			Help: "Total number of uploaded files by outcome",
		},
		[]string{"status"}, // "success", "unsupported", "too_large", "error"
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audio_merger_upload_bytes_total",
			Help: "Total bytes of accepted uploads",
		},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audio_merger_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionsRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_merger_sessions_removed_total",
			Help: "Total number of sessions removed",
		},
		[]string{"reason"}, // "cleanup", "expired"
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audio_merger_active_sessions",
			Help: "Number of sessions currently stored",
		},
	)

	StorageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audio_merger_storage_bytes",
			Help: "Bytes stored in session directories",
		},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_merger_downloads_total",
			Help: "Total number of artifact downloads by outcome",
		},
		[]string{"status"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_merger_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audio_merger_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audio_merger_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audio_merger_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
