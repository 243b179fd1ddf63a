package safemem

import (
	"github.com/joshuapare/safememkit/pkg/types"
	"github.com/joshuapare/safememkit/safemem/table"
)

// CollectGarbage runs one sweep: every live allocation whose death epoch
// equals the current epoch is released, then the clock advances by one.
// A poisoned allocator returns types.ErrFailedAllocation without sweeping.
//
// Call it once per tick for lifetimes to fire predictably. It must not run
// while other goroutines are using dereferenced storage outside the lock
// hook; schedule sweeps between worker phases.
func (a *Allocator) CollectGarbage() error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.poisoned.Load() {
		return types.ErrFailedAllocation
	}
	now := a.clock.Now()
	collected := 0
	a.table.Each(func(i int, s table.Slot) bool {
		if !a.clock.Due(s.Death) {
			return true
		}
		storage, err := a.table.Clear(i)
		if err == nil {
			a.release(storage)
			collected++
		}
		return true
	})
	a.clock.Advance()

	a.stats.sweeps++
	a.stats.collected += collected
	if collected > 0 {
		a.log.Debug("sweep collected", "epoch", now, "collected", collected, "live", a.table.Live())
	}
	return nil
}

// CollectAll releases every allocation regardless of lifetime, drops the
// slot table and resets the generation source and epoch clock, leaving the
// allocator indistinguishable from a fresh one. It also clears the poisoned
// state, and is safe to call at any time. It always returns nil.
//
// Generations restart at gen.First, so handles issued before the teardown
// must be discarded: one may validate again against a new allocation.
func (a *Allocator) CollectAll() error {
	a.lock.Lock()
	defer a.lock.Unlock()

	released := 0
	a.table.Each(func(i int, _ table.Slot) bool {
		storage, err := a.table.Clear(i)
		if err == nil {
			a.release(storage)
			released++
		}
		return true
	})
	a.table.Reset()
	a.gens.Reset()
	a.clock.Reset()
	wasPoisoned := a.poisoned.Swap(false)

	a.stats.teardowns++
	a.stats.tornDown += released
	a.log.Debug("collected all", "released", released, "recoveredFromPoison", wasPoisoned)
	return nil
}
