// Package metrics exposes prometheus counters for delivery activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeliverySuccess counts successful delivery attempts per relay.
	DeliverySuccess = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smtp_dispatch_delivery_success_total",
		Help: "Number of successful delivery attempts, labeled by relay.",
	}, []string{"relay"})

	// DeliveryFailure counts failed delivery attempts per relay.
	DeliveryFailure = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smtp_dispatch_delivery_failure_total",
		Help: "Number of failed delivery attempts, labeled by relay.",
	}, []string{"relay"})

	// BulkRequests counts bulk dispatch operations.
	BulkRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smtp_dispatch_bulk_requests_total",
		Help: "Number of bulk dispatch operations started.",
	})

	// AuditWriteFailures counts swallowed audit append failures.
	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smtp_dispatch_audit_write_failures_total",
		Help: "Number of audit log append failures (logged, not escalated).",
	})
)
