package tracer

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/qtrace/internal/circuit"
	"github.com/roach88/qtrace/internal/ir"
)

// frame is one in-flight operation. grid is nil for skipped operations.
type frame struct {
	name string
	call CallID
	grid *circuit.Grid
}

// Stats counts the events a tracer has seen.
type Stats struct {
	Starts      int `json:"starts"`
	Ends        int `json:"ends"`
	StaleEnds   int `json:"stale_ends"`
	Skipped     int `json:"skipped"`
	Allocations int `json:"allocations"`
	Tags        int `json:"tags"`
	GatesPlaced int `json:"gates_placed"`
}

// Tracer builds one grid per operation invocation from lifecycle events.
//
// Thread-safety: none. A Tracer is driven by exactly one engine, one event
// at a time.
type Tracer struct {
	config ir.TracerConfig
	skip   *SkipList

	frames []frame
	grids  map[string][]*circuit.Grid
	order  []string // operation names in first-grid order
	alloc  *AllocationTracker
	calls  CallTree
	stats  Stats

	registry *prometheus.Registry
	metrics  *metrics
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithConfig sets the skip configuration.
//
// Default: ir.DefaultTracerConfig(), which skips only the tag operation.
func WithConfig(cfg ir.TracerConfig) Option {
	return func(t *Tracer) {
		t.config = cfg
	}
}

// WithRegistry registers the tracer's counters, and those of every grid it
// creates, with reg. A registry serves one tracer; a second tracer on the
// same registry panics on duplicate registration.
//
// Default: a private registry per tracer.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(t *Tracer) {
		t.registry = reg
	}
}

// New creates a Tracer with an empty call stack.
func New(opts ...Option) *Tracer {
	t := &Tracer{
		config: ir.DefaultTracerConfig(),
		grids:  make(map[string][]*circuit.Grid),
		alloc:  NewAllocationTracker(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.registry == nil {
		t.registry = prometheus.NewRegistry()
	}
	t.metrics = newMetrics(t.registry)
	t.skip = NewSkipList(t.config)
	return t
}

// Start is OnOperationStart with one scalar argument per qubit id.
func (t *Tracer) Start(name string, qubits ...int) error {
	return t.OnOperationStart(name, ScalarArgs(qubits...))
}

// End is OnOperationEnd.
func (t *Tracer) End(name string) error {
	return t.OnOperationEnd(name)
}

// Allocate is OnAllocate.
func (t *Tracer) Allocate(ids ...int) error {
	return t.OnAllocate(ids)
}

// OnOperationStart places the invocation in the nearest enclosing open grid,
// then pushes a frame. Unless name is skipped, the frame owns a fresh grid
// appended to the operation's grid list. Names are keyed in NFC form, the
// form the journal stores.
//
// A grid error aborts the run and is returned wrapped.
func (t *Tracer) OnOperationStart(name string, args []ir.Argument) error {
	name = norm.NFC.String(name)
	t.stats.Starts++

	parentCall := NoCall
	if n := len(t.frames); n > 0 {
		parentCall = t.frames[n-1].call
	}

	if g := t.openGrid(); g != nil {
		if err := t.place(g, name, args); err != nil {
			slog.Error("gate placement failed",
				"operation", name,
				"depth", len(t.frames),
				"error", err,
			)
			return fmt.Errorf("start %s: %w", name, err)
		}
	}

	if t.skip.Match(name) {
		call := t.calls.open(name, parentCall, args, -1)
		t.frames = append(t.frames, frame{name: name, call: call})
		t.stats.Skipped++
		t.metrics.operationsSkipped.Inc()

		slog.Debug("operation skipped",
			"operation", name,
			"depth", len(t.frames),
		)
		return nil
	}

	g := circuit.New(circuit.WithMetrics(t.metrics.grid))
	if _, seen := t.grids[name]; !seen {
		t.order = append(t.order, name)
	}
	t.grids[name] = append(t.grids[name], g)
	call := t.calls.open(name, parentCall, args, len(t.grids[name])-1)
	t.frames = append(t.frames, frame{name: name, call: call, grid: g})
	t.metrics.operationsTraced.Inc()

	slog.Debug("operation started",
		"operation", name,
		"invocation", len(t.grids[name])-1,
		"depth", len(t.frames),
	)
	return nil
}

// openGrid returns the grid of the innermost frame that owns one.
func (t *Tracer) openGrid() *circuit.Grid {
	for i := len(t.frames) - 1; i >= 0; i-- {
		if g := t.frames[i].grid; g != nil {
			return g
		}
	}
	return nil
}

// cell is one pending placement: qubit row and gate marker.
type cell struct {
	row  int
	gate circuit.Gate
}

// place adds one cell per touched qubit to g, all in one column. The column
// at the grid's width is always free, as is column 0 of a grid without
// gates. Rows are qubit ids; tagged qubits name their row.
func (t *Tracer) place(g *circuit.Grid, name string, args []ir.Argument) error {
	var cells []cell
	for i, arg := range args {
		for _, q := range arg.Qubits {
			cells = append(cells, cell{row: q, gate: circuit.NewGate(name, i, arg.Array)})
		}
	}
	if len(cells) == 0 {
		return nil
	}

	x := g.Width()
	if g.Count() == 0 {
		x = 0
	}

	for _, c := range cells {
		if err := g.AddGate(x, c.row, c.gate); err != nil {
			return err
		}
		if label, ok := t.alloc.Name(c.row); ok {
			if err := g.SetName(c.row, label); err != nil {
				return err
			}
		}
	}

	t.stats.GatesPlaced += len(cells)
	t.metrics.gatesPlaced.Add(float64(len(cells)))
	return nil
}

// OnOperationEnd finalises and pops the innermost frame when it matches name.
// An end that matches no open frame is tolerated: it is logged, counted and
// otherwise ignored.
func (t *Tracer) OnOperationEnd(name string) error {
	name = norm.NFC.String(name)
	n := len(t.frames)
	if n == 0 || t.frames[n-1].name != name {
		top := ""
		if n > 0 {
			top = t.frames[n-1].name
		}
		t.stats.StaleEnds++
		t.metrics.staleEnds.Inc()
		slog.Warn("stale operation end ignored",
			"operation", name,
			"error", NewStaleEndError(name, top),
		)
		return nil
	}

	f := t.frames[n-1]
	if f.grid != nil {
		if err := finalize(f.grid); err != nil {
			return fmt.Errorf("end %s: %w", name, err)
		}
		slog.Debug("operation finished",
			"operation", name,
			"width", f.grid.Width(),
			"height", f.grid.Height(),
		)
	}

	t.calls.close(f.call)
	t.frames = t.frames[:n-1]
	t.stats.Ends++
	return nil
}

// finalize drops unused ancilla rows, sorts rows by name and freezes g.
func finalize(g *circuit.Grid) error {
	if err := g.TrimUnnamed(); err != nil {
		return err
	}
	if err := g.SortRowsByName(); err != nil {
		return err
	}
	g.Freeze()
	return nil
}

// OnAllocate enqueues ids as one pending allocation.
func (t *Tracer) OnAllocate(ids []int) error {
	t.alloc.Allocate(ids)
	t.stats.Allocations++
	slog.Debug("qubits allocated", "ids", ids, "pending", t.alloc.Pending())
	return nil
}

// Tag names the oldest pending allocation. A tag without a pending
// allocation is fatal for the run.
func (t *Tracer) Tag(label string) error {
	label = norm.NFC.String(label)
	ids, err := t.alloc.Tag(label)
	if err != nil {
		t.metrics.allocationUnderflows.Inc()
		slog.Error("allocation underflow",
			"label", label,
			"depth", len(t.frames),
		)
		return err
	}
	t.stats.Tags++
	slog.Debug("qubits tagged", "label", label, "ids", ids)
	return nil
}

// Grids returns the grids per qualified operation name, in invocation order.
// Only safe to read once the run is complete; see Result.
func (t *Tracer) Grids() map[string][]*circuit.Grid {
	out := make(map[string][]*circuit.Grid, len(t.grids))
	for name, gs := range t.grids {
		out[name] = slices.Clone(gs)
	}
	return out
}

// Operations returns the operation names that own grids, in the order their
// first grid was created.
func (t *Tracer) Operations() []string {
	return slices.Clone(t.order)
}

// Result returns the grids once every frame has been closed. While frames
// remain open it returns an ErrCodeRunIncomplete error and no grids.
func (t *Tracer) Result() (map[string][]*circuit.Grid, error) {
	if len(t.frames) > 0 {
		open := make([]string, len(t.frames))
		for i, f := range t.frames {
			open[i] = f.name
		}
		return nil, NewIncompleteError(open)
	}
	return t.Grids(), nil
}

// Depth returns the number of open frames.
func (t *Tracer) Depth() int {
	return len(t.frames)
}

// Calls returns the call tree recorded so far.
func (t *Tracer) Calls() *CallTree {
	return &t.calls
}

// QubitName returns the tagged name of qubit id.
func (t *Tracer) QubitName(id int) (string, bool) {
	return t.alloc.Name(id)
}

// QubitNames returns every tagged qubit name.
func (t *Tracer) QubitNames() map[int]string {
	return t.alloc.Names()
}

// Stats returns the event counters.
func (t *Tracer) Stats() Stats {
	return t.stats
}

// Config returns the skip configuration in effect.
func (t *Tracer) Config() ir.TracerConfig {
	return t.config
}
