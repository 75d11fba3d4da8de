package auditlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	droppedEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipping_audit_dropped_entries_total",
		Help: "Audit log entries dropped because the write buffer was full",
	})

	partialWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipping_audit_partial_write_failures_total",
		Help: "Audit log entries rejected by MongoDB during an unordered batch insert",
	})
)
