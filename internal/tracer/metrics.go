package tracer

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/qtrace/internal/circuit"
)

type metrics struct {
	operationsTraced     prometheus.Counter
	operationsSkipped    prometheus.Counter
	gatesPlaced          prometheus.Counter
	staleEnds            prometheus.Counter
	allocationUnderflows prometheus.Counter
	grid                 *circuit.Metrics
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		operationsTraced: f.NewCounter(prometheus.CounterOpts{
			Name: "qtrace_tracer_operations_total",
			Help: "Operation invocations that received their own grid",
		}),
		operationsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "qtrace_tracer_operations_skipped_total",
			Help: "Operation invocations matched by the skip list",
		}),
		gatesPlaced: f.NewCounter(prometheus.CounterOpts{
			Name: "qtrace_tracer_gates_placed_total",
			Help: "Gate cells placed into enclosing grids",
		}),
		staleEnds: f.NewCounter(prometheus.CounterOpts{
			Name: "qtrace_tracer_stale_ends_total",
			Help: "End events that matched no open frame",
		}),
		allocationUnderflows: f.NewCounter(prometheus.CounterOpts{
			Name: "qtrace_tracer_allocation_underflows_total",
			Help: "Tag calls issued with no pending allocation",
		}),
		grid: circuit.NewMetrics(reg),
	}
}

// Metrics gathers the tracer's counters, including those of its grids,
// keyed by metric name.
func (t *Tracer) Metrics() (map[string]float64, error) {
	families, err := t.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				out[mf.GetName()] += c.GetValue()
			}
		}
	}
	return out, nil
}
