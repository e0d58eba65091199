package services

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
)

// Metrics holds the moderation counters. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry setup.
type Metrics struct {
	resolutions     *prometheus.CounterVec
	actions         *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	deliveries      *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	dispatchDropped prometheus.Counter
}

// NewMetrics builds and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_resolutions_total",
				Help: "Resolve attempts by outcome and admin action",
			},
			[]string{"outcome", "admin_action"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_actions_total",
				Help: "Entity mutations by action, entity type and result kind",
			},
			[]string{"admin_action", "entity_type", "result"},
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moderation_action_duration_seconds",
				Help:    "Latency of entity mutations against the platform API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"admin_action"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_notification_deliveries_total",
				Help: "Notification outcomes per recipient role, channel and status",
			},
			[]string{"recipient", "channel", "status"},
		),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moderation_notification_queue_depth",
			Help: "Notification plans waiting for a worker",
		}),
		dispatchDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moderation_notification_plans_dropped_total",
			Help: "Notification plans dropped because the queue was full or closed",
		}),
	}

	reg.MustRegister(m.resolutions, m.actions, m.actionDuration, m.deliveries, m.queueDepth, m.dispatchDropped)
	return m
}

func (m *Metrics) observeResolution(action models.AdminAction, err error) {
	if m == nil {
		return
	}
	label := string(action)
	if label == "" {
		label = "invalid"
	}
	m.resolutions.WithLabelValues(resolutionOutcome(err), label).Inc()
}

func (m *Metrics) observeAction(action models.AdminAction, entityType models.EntityType, err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		result = string(actionErr.Kind)
	} else if err != nil {
		result = "error"
	}
	m.actions.WithLabelValues(string(action), string(entityType), result).Inc()
	m.actionDuration.WithLabelValues(string(action)).Observe(took.Seconds())
}

func (m *Metrics) observeDelivery(entry DeliveryEntry) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(string(entry.Recipient), string(entry.Channel), string(entry.Status)).Inc()
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) planDropped() {
	if m == nil {
		return
	}
	m.dispatchDropped.Inc()
}

func resolutionOutcome(err error) string {
	switch {
	case err == nil:
		return "resolved"
	case errors.Is(err, ErrActionFailed):
		return "action_failed"
	case errors.Is(err, ErrInvalidStateTransition):
		return "already_resolved"
	case errors.Is(err, ErrResolutionInProgress):
		return "in_progress"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
