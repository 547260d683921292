// Package metrics defines the prometheus instrumentation shared by the
// ingestion and dispatch paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesIngested counts messages persisted from listened chats.
	MessagesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "themebot_messages_ingested_total",
		Help: "Messages persisted from listened chats.",
	})

	// FilesStored counts attachment metadata rows written.
	FilesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "themebot_files_stored_total",
		Help: "Attachment metadata rows written.",
	})

	// Escalations counts immediate keyword-match forwards.
	Escalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "themebot_escalations_total",
		Help: "Messages forwarded immediately on keyword match.",
	})

	// DigestUnitsSent counts dispatched digest units.
	DigestUnitsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "themebot_digest_units_sent_total",
		Help: "Digest units sent to the moderation chat.",
	})

	// DispatchErrors counts failed digest firings and unit sends.
	DispatchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "themebot_dispatch_errors_total",
		Help: "Errors during digest dispatch.",
	})

	// ActiveJobs tracks the number of live scheduled jobs.
	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "themebot_active_jobs",
		Help: "Live scheduled digest jobs.",
	})
)
