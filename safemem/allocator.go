package safemem

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/safememkit/internal/buf"
	"github.com/joshuapare/safememkit/pkg/types"
	"github.com/joshuapare/safememkit/safemem/epoch"
	"github.com/joshuapare/safememkit/safemem/gen"
	"github.com/joshuapare/safememkit/safemem/table"
)

// Allocator owns one slot table, generation source, epoch clock and poison
// latch. All mutation goes through the lock hook.
type Allocator struct {
	lock sync.Locker
	heap Heap
	log  *slog.Logger

	table *table.Table
	gens  *gen.Source
	clock *epoch.Clock

	// poisoned is read without the lock by Deref.
	poisoned atomic.Bool

	stats counters
}

var (
	defaultOnce  sync.Once
	defaultAlloc *Allocator
)

// Default returns the process-wide allocator, creating it with default
// options on first use.
func Default() *Allocator {
	defaultOnce.Do(func() {
		defaultAlloc = New(nil)
	})
	return defaultAlloc
}

// New creates an allocator. A nil opts uses DefaultOptions().
//
// The table starts with zero slots; the first Allocate grows it.
func New(opts *Options) *Allocator {
	o := opts.withDefaults()
	return &Allocator{
		lock:  o.Locker,
		heap:  o.Heap,
		log:   o.Logger,
		table: table.New(o.BlockSize, o.MaxSlots),
		gens:  gen.NewSource(),
		clock: epoch.NewClock(),
	}
}

// Lock acquires the lock hook. Hold it for the whole time a slice returned by
// Deref is in use.
func (a *Allocator) Lock() { a.lock.Lock() }

// Unlock releases the lock hook.
func (a *Allocator) Unlock() { a.lock.Unlock() }

// Allocate reserves size zeroed bytes that the sweep reclaims lifetime epochs
// from now (0 or Forever: only Free or CollectAll reclaim it).
//
// On failure it returns InvalidHandle. A heap or growth failure poisons the
// allocator and reports types.ErrFailedAllocation; a poisoned allocator
// reports the same without doing anything.
func (a *Allocator) Allocate(size int, lifetime uint64) (Handle, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.allocateLocked(size, lifetime)
}

// AllocateN reserves count elements of elemSize bytes each, rejecting sizes
// that overflow.
func (a *Allocator) AllocateN(count, elemSize int, lifetime uint64) (Handle, error) {
	size, ok := buf.MulOverflowSafe(count, elemSize)
	if !ok {
		return InvalidHandle, types.ErrInvalidSize
	}
	return a.Allocate(size, lifetime)
}

func (a *Allocator) allocateLocked(size int, lifetime uint64) (Handle, error) {
	a.stats.allocCalls++
	if a.poisoned.Load() {
		a.stats.allocFailures++
		return InvalidHandle, types.ErrFailedAllocation
	}
	if size < 0 {
		a.stats.allocFailures++
		return InvalidHandle, types.ErrInvalidSize
	}

	before := a.table.Len()
	idx, err := a.table.FindOrGrow()
	if err != nil {
		a.poison("table growth failed", err)
		return InvalidHandle, types.Wrap(types.ErrFailedAllocation, err)
	}
	if n := a.table.Len(); n != before {
		a.log.Debug("expanded slot table", "slots", n, "blockSize", a.table.BlockSize())
	}

	storage, err := a.heap.Alloc(size)
	if err != nil {
		a.poison("storage allocation failed", err, "size", size)
		return InvalidHandle, types.Wrap(types.ErrFailedAllocation, err)
	}

	g := a.gens.Next()
	death := a.clock.DeathAt(lifetime)
	if err := a.table.Stamp(idx, storage, g, death); err != nil {
		// FindOrGrow only returns empty slots; reaching this is a broken table.
		_ = a.heap.Release(storage)
		a.poison("slot stamp failed", err, "index", idx)
		return InvalidHandle, types.Wrap(types.ErrFailedAllocation, err)
	}

	a.stats.allocs++
	a.stats.bytesAllocated += int64(size)
	a.stats.bytesLive += int64(size)
	a.log.Debug("allocated", "index", idx, "size", size, "gen", g.String(), "death", death)
	return Handle{index: idx, size: size, gen: g}, nil
}

// Free releases h's storage and empties its slot.
//
// Errors:
//   - types.ErrFailedAllocation: the allocator is poisoned
//   - types.ErrBadPointer: h's index is outside the table
//   - types.ErrInvalidState: the slot is empty or holds a newer generation
//     (double free, stale handle)
func (a *Allocator) Free(h Handle) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.stats.freeCalls++
	if a.poisoned.Load() {
		return types.ErrFailedAllocation
	}
	if !a.table.InRange(h.index) {
		a.stats.freeErrors++
		return types.ErrBadPointer
	}
	if !a.table.Match(h.index, h.gen) {
		a.stats.freeErrors++
		return types.ErrInvalidState
	}
	storage, err := a.table.Clear(h.index)
	if err != nil {
		a.stats.freeErrors++
		return err
	}
	a.release(storage)
	a.stats.frees++
	a.log.Debug("freed", "index", h.index, "size", h.size)
	return nil
}

// KeepAlive reschedules h to die lifetime epochs from now (0 or Forever:
// never by sweep). It is best effort: a stale handle or a poisoned allocator
// is silently ignored.
func (a *Allocator) KeepAlive(h Handle, lifetime uint64) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.poisoned.Load() || !a.table.Match(h.index, h.gen) {
		return
	}
	if err := a.table.SetDeath(h.index, a.clock.DeathAt(lifetime)); err == nil {
		a.stats.keepAlives++
	}
}

// poison latches the allocator into the failed state. Callers hold the lock.
func (a *Allocator) poison(msg string, cause error, args ...any) {
	a.poisoned.Store(true)
	a.stats.allocFailures++
	a.stats.poisonEvents++
	a.log.LogAttrs(context.Background(), slog.LevelError, "allocator poisoned",
		slog.String("reason", msg),
		slog.String("error", cause.Error()),
		slog.Group("detail", args...),
	)
}

// release hands storage back to the heap. Callers hold the lock.
func (a *Allocator) release(storage []byte) {
	a.stats.bytesLive -= int64(len(storage))
	a.stats.bytesFreed += int64(len(storage))
	if err := a.heap.Release(storage); err != nil {
		a.stats.releaseErrors++
		a.log.Warn("heap release failed", "size", len(storage), "error", err)
	}
}

// Poisoned reports whether the allocator is latched in the failed state.
func (a *Allocator) Poisoned() bool { return a.poisoned.Load() }

// Epoch returns the current epoch.
func (a *Allocator) Epoch() uint64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.clock.Now()
}

// Len returns the number of slots in the table, empty or not.
func (a *Allocator) Len() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.table.Len()
}

// Live returns the number of live allocations.
func (a *Allocator) Live() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.table.Live()
}

// NextGeneration returns the stamp the next successful Allocate will issue.
func (a *Allocator) NextGeneration() gen.Generation {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.gens.Peek()
}

// Validate checks the slot table's invariants.
func (a *Allocator) Validate() error {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.table.Validate()
}
