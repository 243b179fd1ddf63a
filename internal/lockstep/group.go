package lockstep

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Group drives a fixed set of workers through the same phases.
type Group struct {
	workers []*Worker
}

// NewGroup creates n idle workers named "<prefix>-0" through "<prefix>-(n-1)".
func NewGroup(prefix string, n int) *Group {
	g := &Group{workers: make([]*Worker, n)}
	for i := range g.workers {
		g.workers[i] = New(fmt.Sprintf("%s-%d", prefix, i))
	}
	return g
}

// Len returns the number of workers.
func (g *Group) Len() int { return len(g.workers) }

// Worker returns the i-th worker.
func (g *Group) Worker(i int) *Worker { return g.workers[i] }

// Start starts every worker. task receives the worker's index and phase.
// On error, workers already started are destroyed.
func (g *Group) Start(task func(worker, phase int)) error {
	if task == nil {
		return ErrNilTask
	}
	for i, w := range g.workers {
		if err := w.Start(func(phase int) { task(i, phase) }); err != nil {
			g.Destroy()
			return err
		}
	}
	return nil
}

// Pause waits until every worker is parked.
func (g *Group) Pause() {
	for _, w := range g.workers {
		w.Pause()
	}
}

// Step releases every worker for one phase.
func (g *Group) Step() error {
	var err error
	for _, w := range g.workers {
		err = errors.CombineErrors(err, w.Step())
	}
	return err
}

// Kill terminates every worker.
func (g *Group) Kill() {
	for _, w := range g.workers {
		w.Kill()
	}
}

// Destroy kills every worker and waits for all of them to exit.
func (g *Group) Destroy() {
	for _, w := range g.workers {
		w.Destroy()
	}
}
