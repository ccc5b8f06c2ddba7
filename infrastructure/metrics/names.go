package metrics

const (
	HTTPRequestsTotal   = "http_requests_total"
	HTTPRequestDuration = "http_request_duration_seconds"

	ProctorLogsAccepted = "proctor_logs_accepted_total"
	ProctorLogsSkipped  = "proctor_logs_skipped_total"
	ProctorLogsFailed   = "proctor_logs_failed_total"

	FinalizeQueueDepth = "finalize_queue_depth"
	FinalizeDuration   = "finalize_duration_seconds"
	PlagiarismFlags    = "plagiarism_flags_total"
	OrphanLogsDeleted  = "orphan_logs_deleted_total"
)

// RegisterApplicationMetrics declares every instrument the service records.
func RegisterApplicationMetrics(m Manager) {
	RegisterSystemMetrics(m)

	m.NewCounter(HTTPRequestsTotal, "Total number of HTTP requests")
	m.NewHistogram(HTTPRequestDuration, "HTTP request duration in seconds",
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0)

	m.NewCounter(ProctorLogsAccepted, "Proctor log entries persisted")
	m.NewCounter(ProctorLogsSkipped, "Proctor log entries skipped for unknown submissions or invalid shape")
	m.NewCounter(ProctorLogsFailed, "Proctor log entries that failed to persist")

	m.NewUpDownCounter(FinalizeQueueDepth, "Finalize events waiting for a worker")
	m.NewHistogram(FinalizeDuration, "Time spent fingerprinting and scanning peers",
		0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0)
	m.NewCounter(PlagiarismFlags, "Plagiarism flags raised")
	m.NewCounter(OrphanLogsDeleted, "Proctor logs removed because their submission no longer exists")
}
