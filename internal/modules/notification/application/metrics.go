package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Notifications persisted, by type.",
	}, []string{"type"})

	createFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_store_failures_total",
		Help: "Notification writes rejected by the store, by type.",
	}, []string{"type"})

	triggerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_trigger_failures_total",
		Help: "Best-effort workflow triggers that failed, by type.",
	}, []string{"type"})

	retentionDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notification_retention_deleted_total",
		Help: "Notifications removed by the retention sweep.",
	})

	retentionSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_retention_sweeps_total",
		Help: "Retention sweeps, by result.",
	}, []string{"result"})
)
