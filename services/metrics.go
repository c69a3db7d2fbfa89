package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the store's prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	IDsIssued       *prometheus.CounterVec
	Persists        *prometheus.CounterVec
	PersistDuration prometheus.Histogram
	AuditEntries    *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg (skipped when reg is nil)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IDsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legal",
			Name:      "ids_issued_total",
			Help:      "Sequence ids issued, by counter key.",
		}, []string{"counter"}),
		Persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legal",
			Name:      "snapshot_persists_total",
			Help:      "Snapshot writes to durable storage, by result.",
		}, []string{"result"}),
		PersistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "legal",
			Name:      "snapshot_persist_seconds",
			Help:      "Time spent writing a tenant snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		AuditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legal",
			Name:      "audit_entries_total",
			Help:      "Audit entries appended, by action.",
		}, []string{"action"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legal",
			Name:      "notifications_total",
			Help:      "Notifications attempted, by kind and result.",
		}, []string{"kind", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.IDsIssued, m.Persists, m.PersistDuration, m.AuditEntries, m.Notifications)
	}
	return m
}

func (m *Metrics) idIssued(counterKey string) {
	if m == nil {
		return
	}
	m.IDsIssued.WithLabelValues(counterKey).Inc()
}

func (m *Metrics) persisted(start time.Time, err error) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Persists.WithLabelValues(result).Inc()
}

func (m *Metrics) audited(action string) {
	if m == nil {
		return
	}
	m.AuditEntries.WithLabelValues(action).Inc()
}

func (m *Metrics) notified(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.Notifications.WithLabelValues(kind, result).Inc()
}
