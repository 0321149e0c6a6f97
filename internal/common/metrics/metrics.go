// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DealsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_deals_created_total",
			Help: "Total number of deal snapshots created",
		},
	)

	ApprovalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Total number of committed approve/reject decisions",
		},
		[]string{"status"},
	)

	TokenRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_token_rejections_total",
			Help: "Total number of token lookups rejected before the state machine",
		},
		[]string{"reason"},
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_webhook_deliveries_total",
			Help: "Total number of webhook delivery outcomes",
		},
		[]string{"result"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_notifications_total",
			Help: "Total number of notification email outcomes",
		},
		[]string{"template", "status"},
	)
)
