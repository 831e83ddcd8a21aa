package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector manages Prometheus metrics for the workflow engine. A nil
// Collector is valid and records nothing, which keeps tests quiet.
type Collector struct {
	transitionsTotal   *prometheus.CounterVec
	domainErrorsTotal  *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	wantedListSize     prometheus.Gauge
}

// NewCollector registers the engine metrics on the default registry.
func NewCollector() *Collector {
	return &Collector{
		transitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "case_engine_transitions_total",
			Help: "Workflow transitions by workflow, operation and outcome",
		}, []string{"workflow", "operation", "outcome"}),

		domainErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "case_engine_domain_errors_total",
			Help: "Typed workflow rejections by error kind",
		}, []string{"kind"}),

		notificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "case_engine_notifications_total",
			Help: "Notifications recorded by type",
		}, []string{"type"}),

		wantedListSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "case_engine_wanted_list_size",
			Help: "Suspects in intensive pursuit at the last wanted-list read",
		}),
	}
}

// Transition records a workflow operation outcome.
func (c *Collector) Transition(workflow, operation, outcome string) {
	if c == nil {
		return
	}
	c.transitionsTotal.WithLabelValues(workflow, operation, outcome).Inc()
}

// DomainError records a typed rejection.
func (c *Collector) DomainError(kind string) {
	if c == nil {
		return
	}
	c.domainErrorsTotal.WithLabelValues(kind).Inc()
}

// Notification records one dispatched notification.
func (c *Collector) Notification(ntype string) {
	if c == nil {
		return
	}
	c.notificationsTotal.WithLabelValues(ntype).Inc()
}

// WantedListSize records the size of the last computed wanted list.
func (c *Collector) WantedListSize(n int) {
	if c == nil {
		return
	}
	c.wantedListSize.Set(float64(n))
}
