package lockstep

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_RunsOnlyWhenStepped(t *testing.T) {
	var runs atomic.Int32
	w := New("w")
	require.Equal(t, StateIdle, w.State())
	require.NoError(t, w.Start(func(int) { runs.Add(1) }))
	defer w.Destroy()

	assert.Equal(t, StateParked, w.State())
	w.Pause() // parked already, must not block
	assert.Equal(t, int32(0), runs.Load())

	for i := range 5 {
		require.NoError(t, w.Step())
		w.Pause()
		assert.Equal(t, int32(i+1), runs.Load())
		assert.Equal(t, i+1, w.Phases())
		assert.Equal(t, StateParked, w.State())
	}
}

func TestWorker_PhaseNumbers(t *testing.T) {
	var seen []int
	w := New("w")
	require.NoError(t, w.Start(func(phase int) { seen = append(seen, phase) }))
	for range 3 {
		require.NoError(t, w.Step())
		w.Pause()
	}
	w.Destroy()
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestWorker_StepWhileRunning(t *testing.T) {
	release := make(chan struct{})
	w := New("w")
	require.NoError(t, w.Start(func(int) { <-release }))

	require.NoError(t, w.Step())
	require.ErrorIs(t, w.Step(), ErrRunning)
	close(release)
	w.Pause()
	w.Destroy()
}

func TestWorker_LifecycleErrors(t *testing.T) {
	w := New("w")
	require.ErrorIs(t, w.Step(), ErrNotStarted)
	require.ErrorIs(t, w.Start(nil), ErrNilTask)

	require.NoError(t, w.Start(func(int) {}))
	require.ErrorIs(t, w.Start(func(int) {}), ErrStarted)

	w.Kill()
	assert.Equal(t, StateKilled, w.State())
	require.ErrorIs(t, w.Step(), ErrKilled)
	require.ErrorIs(t, w.Start(func(int) {}), ErrKilled)

	w.Kill()
	w.Destroy()
	w.Destroy()
}

func TestWorker_KillWaitsForPhase(t *testing.T) {
	var finished atomic.Bool
	release := make(chan struct{})
	w := New("w")
	require.NoError(t, w.Start(func(int) {
		<-release
		finished.Store(true)
	}))
	require.NoError(t, w.Step())

	go close(release)
	w.Kill()
	assert.True(t, finished.Load(), "kill must let the running phase finish")
	assert.Equal(t, 1, w.Phases())
	w.Destroy()
}

func TestWorker_DestroyIdle(t *testing.T) {
	w := New("w")
	w.Destroy()
	assert.Equal(t, StateKilled, w.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "parked", StateParked.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "killed", StateKilled.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestGroup_PhasesAreExclusive(t *testing.T) {
	const workers, phases = 6, 10

	g := NewGroup("worker", workers)
	require.Equal(t, workers, g.Len())
	assert.Equal(t, "worker-3", g.Worker(3).Name())

	var active, runs atomic.Int32
	require.NoError(t, g.Start(func(_, _ int) {
		active.Add(1)
		runs.Add(1)
		active.Add(-1)
	}))

	for range phases {
		g.Pause()
		// Every worker is parked: nothing may be mid-task.
		require.Equal(t, int32(0), active.Load())
		require.NoError(t, g.Step())
	}
	g.Kill()
	g.Destroy()

	assert.Equal(t, int32(workers*phases), runs.Load())
	for i := range workers {
		assert.Equal(t, phases, g.Worker(i).Phases())
	}
}

func TestGroup_TaskSeesWorkerIndex(t *testing.T) {
	g := NewGroup("w", 4)
	var mask atomic.Int32
	require.NoError(t, g.Start(func(worker, _ int) { mask.Or(1 << worker) }))
	require.NoError(t, g.Step())
	g.Pause()
	g.Destroy()
	assert.Equal(t, int32(0b1111), mask.Load())
}

func TestGroup_StartNil(t *testing.T) {
	require.ErrorIs(t, NewGroup("w", 2).Start(nil), ErrNilTask)
}
