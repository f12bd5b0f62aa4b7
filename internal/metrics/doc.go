// Package metrics provides Prometheus instrumentation for the audio merger.
//
// All metrics are prefixed with "audio_merger_" and registered with the
// default registry through promauto. Expose them by mounting
// promhttp.Handler() on the metrics server.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Merge Pipeline Metrics
//   - MergesTotal: merges by outcome
//   - MergeFailuresTotal: failures by stage and error kind
//   - MergeDuration / MergeStageDuration: end-to-end and per-stage timing
//   - MergesInProgress: merges currently running
//   - MergeClipsPerRequest, MergeOutputBytes
//   - ClipsNormalizedTotal, ProbeFailuresTotal, WorkspaceCleanupErrors
//
// ## External Tool Metrics
//   - ToolInvocationsTotal: ffmpeg/ffprobe runs by operation and outcome
//   - ToolInvocationDuration
//
// ## Session Metrics
//   - UploadsTotal, UploadBytes, DownloadsTotal
//   - SessionsCreated, SessionsRemoved, ActiveSessions, StorageBytes
//
// ## Database Metrics
//   - DBQueryTotal, DBQueryDuration
//
// # Collector
//
// [Collector] periodically asks a [StatsProvider] (the session store) for
// storage statistics and updates the session gauges:
//
//	collector := metrics.NewCollector(store, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Merge failure rate by stage:
//
//	sum(rate(audio_merger_merge_failures_total[1h])) by (stage)
//
// P95 merge latency:
//
//	histogram_quantile(0.95, sum(rate(audio_merger_merge_duration_seconds_bucket[1h])) by (le))
//
// ffmpeg timeouts:
//
//	rate(audio_merger_tool_invocations_total{status="timeout"}[1h])
package metrics
