// Package runtime provides the reference periodic driver described in
// spec.md §5: a wall-clock timer loop that, every cycle, bulk-reads
// sensors, updates the ring-buffer subsystem, invokes the compiled
// coordinator's Evaluate, and bulk-writes outputs. The driver's scheduling
// guarantees are spec.md's concern, not this package's invention; this is
// the "periodic driver that invokes Evaluate and forwards inputs/outputs"
// spec.md treats as an external collaborator, given a concrete body so the
// whole system runs end to end. Grounded on the teacher's internal/worker
// Start/Stop/Config shape, generalized from async message processing to a
// synchronous poll loop.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pulsar-rules/pulsar/internal/buffer"
	"github.com/pulsar-rules/pulsar/internal/domain"
	"github.com/pulsar-rules/pulsar/internal/metrics"
)

// Coordinator is the signature of generated code's entry point, per
// spec.md §9: plain, statically typed, no reflection.
type Coordinator func(ctx context.Context, inputs, outputs map[string]float64, buffers *buffer.Manager, publisher domain.MessagePublisher) error

// Config holds the driver's tunables, mirroring domain.RuntimeConfig.
type Config struct {
	CycleTime          time.Duration
	Sensors            []string // the full set of input sensor names to read each cycle
	OverrunWarnInterval time.Duration // rate limit for the "cycle took too long" warning; defaults to one minute
}

// Driver is the reference runtime: store -> buffers -> Evaluate -> store,
// on a fixed cycle, per spec.md §5. A cycle never overlaps its successor:
// the loop blocks on one cycle's completion before waiting for the next
// tick.
type Driver struct {
	cfg         Config
	store       domain.SensorStore
	buffers     *buffer.Manager
	coordinator Coordinator
	publisher   domain.MessagePublisher

	mu          sync.Mutex
	lastWarned  time.Time
}

// New builds a Driver. buffers and publisher are both already constructed
// by the caller (internal/buffer.Manager, internal/bus), since this
// package only orchestrates the cycle, it doesn't own their lifecycle.
func New(cfg Config, store domain.SensorStore, buffers *buffer.Manager, coordinator Coordinator, publisher domain.MessagePublisher) *Driver {
	if cfg.CycleTime <= 0 {
		cfg.CycleTime = 100 * time.Millisecond
	}
	if cfg.OverrunWarnInterval <= 0 {
		cfg.OverrunWarnInterval = time.Minute
	}
	return &Driver{cfg: cfg, store: store, buffers: buffers, coordinator: coordinator, publisher: publisher}
}

// Run blocks, executing one cycle per tick until ctx is cancelled or a
// cycle fails; a failed cycle is logged and its error returned to the
// caller. Cancellation is cooperative: the in-flight cycle finishes, then
// the next timer wait observes ctx.Done() and Run returns instead of
// starting another cycle, per spec.md §5.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.CycleTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.runCycle(ctx); err != nil {
				slog.Error("cycle failed", "error", err)
				return err
			}
		}
	}
}

// runCycle executes exactly one read -> buffer update -> evaluate -> write
// transaction and reports overruns, rate-limited to at most once per
// OverrunWarnInterval so a sustained slowdown doesn't flood logs.
func (d *Driver) runCycle(ctx context.Context) error {
	start := time.Now()

	readings, err := d.store.GetMany(ctx, d.cfg.Sensors)
	if err != nil {
		metrics.ObserveCycle(time.Since(start), err, false)
		return err
	}

	inputs := make(map[string]float64, len(readings))
	for name, r := range readings {
		inputs[name] = r.Value
	}
	d.buffers.Update(inputs)
	metrics.Runtime.BufferWrites.Add(float64(len(inputs)))

	outputs := make(map[string]float64)
	evalErr := d.coordinator(ctx, inputs, outputs, d.buffers, d.publisher)
	if evalErr != nil {
		metrics.ObserveCycle(time.Since(start), evalErr, false)
		return evalErr
	}

	var writeErr error
	if len(outputs) > 0 {
		writeErr = d.store.SetMany(ctx, outputs)
	}

	elapsed := time.Since(start)
	overran := elapsed > d.cfg.CycleTime
	if overran {
		d.warnOverrun(elapsed)
	}
	metrics.ObserveCycle(elapsed, writeErr, overran)
	return writeErr
}

func (d *Driver) warnOverrun(elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if now.Sub(d.lastWarned) < d.cfg.OverrunWarnInterval {
		return
	}
	d.lastWarned = now
	slog.Warn("cycle exceeded configured cycle time",
		"elapsed", elapsed,
		"cycle_time", d.cfg.CycleTime,
	)
}
