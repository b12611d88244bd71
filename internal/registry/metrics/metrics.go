package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded on the mutation counter.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

// Metrics provides observability for registries and relations.
// Tracks mutations by outcome, current sizes and operation latency.
type Metrics struct {
	Mutations         *prometheus.CounterVec
	RegistrySize      *prometheus.GaugeVec
	RelationLinks     *prometheus.GaugeVec
	OperationDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance registered with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "apeguard_mutations_total",
			Help: "Registry and relation mutations by target, operation and outcome",
		}, []string{"target", "op", "outcome"}),
		RegistrySize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "apeguard_registry_size",
			Help: "Number of keys held by each registry",
		}, []string{"registry"}),
		RelationLinks: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "apeguard_relation_links",
			Help: "Number of active links held by each relation",
		}, []string{"relation"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apeguard_operation_duration_seconds",
			Help:    "Duration of registry and relation mutations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"op"}),
	}
}

// ObserveMutation records the outcome and duration of one mutation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveMutation(target, op string, err error, start time.Time) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeRejected
	}
	m.Mutations.WithLabelValues(target, op, outcome).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetRegistrySize records the current size of a registry.
func (m *Metrics) SetRegistrySize(registry string, size int) {
	m.RegistrySize.WithLabelValues(registry).Set(float64(size))
}

// SetRelationLinks records the current link total of a relation.
func (m *Metrics) SetRelationLinks(relation string, total int) {
	m.RelationLinks.WithLabelValues(relation).Set(float64(total))
}
