package circuit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts grid mutations that restructure a grid. One Metrics value
// may be shared by every grid of a traced run.
type Metrics struct {
	Collisions       prometheus.Counter
	CascadeRemovals  prometheus.Counter
	ColumnsCompacted prometheus.Counter
}

// NewMetrics registers the grid counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Collisions: f.NewCounter(prometheus.CounterOpts{
			Name: "qtrace_grid_collisions_total",
			Help: "Total number of placements that landed on an occupied cell and inserted a column",
		}),
		CascadeRemovals: f.NewCounter(prometheus.CounterOpts{
			Name: "qtrace_grid_cascade_removals_total",
			Help: "Total number of cells cleared by cascading removal",
		}),
		ColumnsCompacted: f.NewCounter(prometheus.CounterOpts{
			Name: "qtrace_grid_columns_compacted_total",
			Help: "Total number of empty columns dropped by Shrink",
		}),
	}
}

// The nil *Metrics counts nothing.

func (m *Metrics) collision() {
	if m != nil {
		m.Collisions.Inc()
	}
}

func (m *Metrics) cascadeRemoval() {
	if m != nil {
		m.CascadeRemovals.Inc()
	}
}

func (m *Metrics) columnsCompacted(n int) {
	if m != nil && n > 0 {
		m.ColumnsCompacted.Add(float64(n))
	}
}
