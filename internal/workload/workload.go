// Package workload drives a safemem allocator with a fixed set of lockstep
// workers and a coordinating loop, the way a program embedding the allocator
// is expected to use it.
//
// Each worker phase cycles a ring of handles: allocate, write and read back
// every element under the lock hook, probe a few elements past the end (which
// the checked accessors must refuse), then free. One ring slot instead holds
// a long-lived buffer that is renewed with KeepAlive and deliberately never
// freed, so sweeps and teardown have something to reclaim. Between phases,
// with every worker parked, the coordinator allocates, sweeps and frees.
package workload

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/safememkit/internal/lockstep"
	"github.com/joshuapare/safememkit/safemem"
)

// ErrNoMemory is returned when a freshly allocated handle fails to deref.
var ErrNoMemory = errors.New("workload: allocation did not yield memory")

// Config sizes a run.
type Config struct {
	// Workers is the number of lockstep workers.
	// Default: 6
	Workers int

	// Phases is the number of coordinator iterations. Each one sweeps once
	// and releases every worker for one phase.
	// Default: 10
	Phases int

	// Iterations is the number of ring steps a worker takes per phase.
	// Default: 1000
	Iterations int

	// Ring is the number of handles each worker cycles through.
	// Default: 100
	Ring int

	// LongLived is the ring slot holding the long-lived buffer. Values
	// outside (0, Ring) select the default, clamped into the ring.
	// Default: 42
	LongLived int

	// KeepAlive is the lifetime the long-lived buffer is renewed with.
	// Default: 200
	KeepAlive uint64

	// Elems and LongElems are the uint32 counts of ring and long-lived
	// buffers. CoordElems sizes the coordinator's per-phase buffer.
	// Defaults: 30, 1000, 3000
	Elems      int
	LongElems  int
	CoordElems int

	// Probe is the number of elements each step writes and reads. Probes
	// past Elems must be refused.
	// Default: 35
	Probe int

	// Value is written into every probed element.
	// Default: 47
	Value uint32

	// Logger receives per-phase progress at debug level.
	// Default: discard
	Logger *slog.Logger
}

// DefaultConfig returns the configuration of the reference demo.
func DefaultConfig() Config {
	return Config{
		Workers:    6,
		Phases:     10,
		Iterations: 1000,
		Ring:       100,
		LongLived:  42,
		KeepAlive:  200,
		Elems:      30,
		LongElems:  1000,
		CoordElems: 3000,
		Probe:      35,
		Value:      47,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.Phases <= 0 {
		c.Phases = d.Phases
	}
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	if c.Ring <= 0 {
		c.Ring = d.Ring
	}
	if c.LongLived <= 0 || c.LongLived >= c.Ring {
		c.LongLived = min(d.LongLived, c.Ring-1)
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = d.KeepAlive
	}
	if c.Elems <= 0 {
		c.Elems = d.Elems
	}
	if c.LongElems <= 0 {
		c.LongElems = d.LongElems
	}
	if c.CoordElems <= 0 {
		c.CoordElems = d.CoordElems
	}
	if c.Probe <= 0 {
		c.Probe = d.Probe
	}
	if c.Value == 0 {
		c.Value = d.Value
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Report summarizes a run.
type Report struct {
	Phases      int `json:"phases"`      // coordinator iterations completed
	WorkerSteps int `json:"workerSteps"` // ring steps across all workers
	Writes      int `json:"writes"`      // accepted element writes
	Reads       int `json:"reads"`       // accepted element reads
	Refused     int `json:"refused"`     // probes refused as out of bounds
	Mismatches  int `json:"mismatches"`  // reads that did not return Value
	LongLived   int `json:"longLived"`   // long-lived buffers left to the collector

	// Stats is the allocator snapshot taken just before the final teardown,
	// Teardown the one taken just after it.
	Stats    safemem.Stats `json:"stats"`
	Teardown safemem.Stats `json:"teardown"`
}

// tally is one worker's share of a Report.
type tally struct {
	steps, writes, reads, refused, mismatches, longLived int
	err                                                  error
}

// Run executes the workload against a and tears the allocator down with
// CollectAll before returning. ctx is checked between phases.
func Run(ctx context.Context, a *safemem.Allocator, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger

	tallies := make([]tally, cfg.Workers)
	g := lockstep.NewGroup("worker", cfg.Workers)
	if err := g.Start(func(worker, phase int) {
		t := &tallies[worker]
		if t.err != nil {
			return
		}
		t.err = runPhase(a, cfg, t)
	}); err != nil {
		return Report{}, err
	}

	var rep Report
	coord := make([]safemem.Handle, cfg.Ring)
	long, runErr := a.AllocateN(cfg.CoordElems, 4, cfg.KeepAlive)
	coord[cfg.LongLived] = long
	for i := range cfg.Phases {
		if runErr != nil {
			break
		}
		g.Pause()
		if runErr = ctx.Err(); runErr != nil {
			break
		}
		if runErr = firstErr(tallies); runErr != nil {
			break
		}

		slot := i % cfg.Ring
		if slot != cfg.LongLived {
			h, err := a.AllocateN(cfg.CoordElems, 4, 1)
			if err != nil {
				runErr = errors.Wrapf(err, "phase %d", i)
				break
			}
			coord[slot] = h
		}
		if a.Deref(coord[slot]) == nil {
			runErr = errors.Wrapf(ErrNoMemory, "coordinator, phase %d", i)
			break
		}
		if runErr = a.CollectGarbage(); runErr != nil {
			break
		}
		if slot != cfg.LongLived {
			if runErr = a.Free(coord[slot]); runErr != nil {
				break
			}
		} else {
			a.KeepAlive(coord[slot], cfg.KeepAlive)
		}

		log.Debug("phase complete", "phase", i, "epoch", a.Epoch(), "live", a.Live())
		rep.Phases++
		if runErr = g.Step(); runErr != nil {
			break
		}
	}

	g.Kill()
	g.Destroy()
	if runErr == nil {
		runErr = firstErr(tallies)
	}

	for _, t := range tallies {
		rep.WorkerSteps += t.steps
		rep.Writes += t.writes
		rep.Reads += t.reads
		rep.Refused += t.refused
		rep.Mismatches += t.mismatches
		rep.LongLived += t.longLived
	}

	rep.Stats = a.Stats()
	if err := a.CollectAll(); err != nil && runErr == nil {
		runErr = err
	}
	rep.Teardown = a.Stats()
	log.Debug("workload finished", "phases", rep.Phases, "tornDown", rep.Teardown.TornDown-rep.Stats.TornDown)
	return rep, runErr
}

// runPhase is one worker phase: cfg.Iterations steps around a fresh ring.
func runPhase(a *safemem.Allocator, cfg Config, t *tally) error {
	ring := make([]safemem.Handle, cfg.Ring)
	long, err := a.AllocateN(cfg.LongElems, 4, 1)
	if err != nil {
		return err
	}
	ring[cfg.LongLived] = long
	t.longLived++

	for i := range cfg.Iterations {
		slot := i % cfg.Ring
		if slot != cfg.LongLived {
			h, err := a.AllocateN(cfg.Elems, 4, 1)
			if err != nil {
				return errors.Wrapf(err, "step %d", i)
			}
			if !valid(a, h) {
				return errors.Wrapf(ErrNoMemory, "step %d", i)
			}
			ring[slot] = h
		}

		h := ring[slot]
		for e := range cfg.Probe {
			probe(a, h, e, cfg.Value, t)
		}

		if slot != cfg.LongLived {
			if err := a.Free(h); err != nil {
				return errors.Wrapf(err, "step %d", i)
			}
		} else {
			a.KeepAlive(h, cfg.KeepAlive)
		}
		t.steps++
	}
	return nil
}

// valid checks h under the lock, since other workers may be growing the
// table.
func valid(a *safemem.Allocator, h safemem.Handle) bool {
	a.Lock()
	defer a.Unlock()
	return a.Valid(h)
}

// probe writes v to element e of h and reads it back, all under the lock.
func probe(a *safemem.Allocator, h safemem.Handle, e int, v uint32, t *tally) {
	a.Lock()
	defer a.Unlock()

	if !a.PutUint32At(h, e, v) {
		t.refused++
		return
	}
	t.writes++
	got, ok := a.Uint32At(h, e)
	if !ok {
		t.refused++
		return
	}
	t.reads++
	if got != v {
		t.mismatches++
	}
}

func firstErr(tallies []tally) error {
	for i := range tallies {
		if tallies[i].err != nil {
			return errors.Wrapf(tallies[i].err, "worker %d", i)
		}
	}
	return nil
}
