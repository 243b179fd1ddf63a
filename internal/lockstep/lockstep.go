// Package lockstep runs worker goroutines one phase at a time under the
// control of a single coordinating goroutine.
//
// A Worker alternates between two states. Parked, it waits at its barrier and
// runs nothing. Released by Step, it runs its task exactly once and parks
// again. The coordinator calls Pause to wait for the current phase to finish,
// which gives it a window in which no worker is touching shared state:
//
//	w := lockstep.New("w1")
//	_ = w.Start(task)
//	for range phases {
//		w.Pause()
//		// exclusive work, e.g. a garbage sweep
//		_ = w.Step()
//	}
//	w.Destroy()
//
// Worker methods are meant for one coordinating goroutine; they are not safe
// to call from several goroutines at once.
package lockstep

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNilTask is returned by Start when given a nil task.
	ErrNilTask = errors.New("lockstep: nil task")

	// ErrStarted is returned by Start on a worker that already ran Start.
	ErrStarted = errors.New("lockstep: worker already started")

	// ErrNotStarted is returned by Step before Start.
	ErrNotStarted = errors.New("lockstep: worker not started")

	// ErrRunning is returned by Step while a phase is still in progress.
	ErrRunning = errors.New("lockstep: phase in progress")

	// ErrKilled is returned by Start and Step after Kill.
	ErrKilled = errors.New("lockstep: worker killed")
)

// Task is the work a Worker runs once per phase. phase counts from 0.
type Task func(phase int)

// State is a worker's position in its life cycle.
type State int

const (
	StateIdle    State = iota // created, not started
	StateParked               // waiting at the barrier
	StateRunning              // executing a phase
	StateKilled               // terminated, goroutine exiting or gone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParked:
		return "parked"
	case StateRunning:
		return "running"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Worker is a goroutine that runs its task only when stepped.
type Worker struct {
	name string

	mu     sync.Mutex
	state  State
	phases int

	task Task
	step chan struct{} // barrier release
	done chan struct{} // one value per finished phase
	kill chan struct{} // closed by Kill
	exit chan struct{} // closed when the goroutine returns
}

// New returns an idle worker.
func New(name string) *Worker {
	return &Worker{
		name: name,
		step: make(chan struct{}),
		done: make(chan struct{}, 1),
		kill: make(chan struct{}),
		exit: make(chan struct{}),
	}
}

// Name returns the name given to New.
func (w *Worker) Name() string { return w.name }

// State returns the worker's current state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Phases returns the number of phases the task has completed.
func (w *Worker) Phases() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phases
}

// Start launches the worker goroutine parked at its barrier. task does not
// run until the first Step.
func (w *Worker) Start(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateKilled:
		return errors.Wrapf(ErrKilled, "start %s", w.name)
	case StateIdle:
	default:
		return errors.Wrapf(ErrStarted, "start %s", w.name)
	}

	w.task = task
	w.state = StateParked
	go w.run()
	return nil
}

func (w *Worker) run() {
	defer close(w.exit)
	for phase := 0; ; phase++ {
		select {
		case <-w.kill:
			return
		case <-w.step:
		}
		w.task(phase)
		w.done <- struct{}{}
	}
}

// Step releases a parked worker to run exactly one phase. It does not wait
// for the phase to finish; use Pause for that.
func (w *Worker) Step() error {
	w.mu.Lock()
	switch w.state {
	case StateIdle:
		w.mu.Unlock()
		return errors.Wrapf(ErrNotStarted, "step %s", w.name)
	case StateRunning:
		w.mu.Unlock()
		return errors.Wrapf(ErrRunning, "step %s", w.name)
	case StateKilled:
		w.mu.Unlock()
		return errors.Wrapf(ErrKilled, "step %s", w.name)
	}
	w.state = StateRunning
	w.mu.Unlock()

	w.step <- struct{}{}
	return nil
}

// Pause blocks until the worker is parked at its barrier. It returns at once
// for a worker that is not running.
func (w *Worker) Pause() {
	w.mu.Lock()
	running := w.state == StateRunning
	w.mu.Unlock()
	if !running {
		return
	}

	<-w.done

	w.mu.Lock()
	w.state = StateParked
	w.phases++
	w.mu.Unlock()
}

// Kill waits for any phase in progress, then terminates the worker without
// running its task again. Killing twice is a no-op.
func (w *Worker) Kill() {
	w.Pause()

	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case StateKilled:
		return
	case StateIdle:
		// No goroutine to stop.
		close(w.exit)
	default:
		close(w.kill)
	}
	w.state = StateKilled
}

// Destroy kills the worker if needed and waits for its goroutine to return.
func (w *Worker) Destroy() {
	w.Kill()
	<-w.exit
}
