package metrics

// Stage and kind label values shared with the merge package.
var (
	stageLabels = []string{"idle", "normalizing", "manifest_built", "concatenating"}
	kindLabels  = []string{"validation", "conversion", "concatenation", "empty_output"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "failed"} {
		MergesTotal.WithLabelValues(status)
		ClipsNormalizedTotal.WithLabelValues(status)
	}

	for _, stage := range stageLabels {
		MergeStageDuration.WithLabelValues(stage)
		for _, kind := range kindLabels {
			MergeFailuresTotal.WithLabelValues(stage, kind)
		}
	}

	for _, op := range []string{"probe", "normalize", "concatenate"} {
		ToolInvocationDuration.WithLabelValues(op)
		for _, status := range []string{"success", "error", "timeout"} {
			ToolInvocationsTotal.WithLabelValues(op, status)
		}
	}

	for _, status := range []string{"success", "unsupported", "too_large", "error"} {
		UploadsTotal.WithLabelValues(status)
	}

	for _, reason := range []string{"cleanup", "expired"} {
		SessionsRemoved.WithLabelValues(reason)
	}

	for _, status := range []string{"success", "not_found", "empty", "invalid"} {
		DownloadsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"initialize_schema", "create_session", "get_session", "touch_session",
		"delete_session", "add_clip", "record_merge", "list_merges", "list_clips", "expired_sessions", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
