// Package safemem provides generational, handle-based access to heap storage.
//
// # Overview
//
// Allocate never hands out a raw slice. It returns a Handle: the slot index,
// the requested size and a 128-bit generation stamped into the slot at
// allocation time. Every later operation validates the handle against the
// live slot table first, which catches:
//
//   - use after free (the slot is empty)
//   - stale handles (the slot was reused under a newer generation)
//   - reads and writes past the requested extent (accessors check Size)
//
// # Operations
//
//   - Allocate(size, lifetime): reserve size zeroed bytes
//   - Deref(h): validated storage, or nil
//   - Free(h): release storage, ErrInvalidState on double free
//   - KeepAlive(h, lifetime): reschedule automatic reclamation
//   - CollectGarbage(): one sweep; reclaim slots whose death epoch is now
//   - CollectAll(): release everything and reset to a fresh instance
//
// # Lifetimes
//
// Lifetimes are counted in epochs. The epoch clock starts at 1 and advances by
// one per CollectGarbage call. An allocation made with lifetime L at epoch E
// dies on the sweep that runs while the clock reads E+L. Expiry is exact: if
// that sweep never runs at E+L the allocation survives until teardown. A
// lifetime of 0 or Forever disables automatic reclamation.
//
// # Locking
//
// The lock hook (Options.Locker, any sync.Locker) guards every mutation of the
// slot table, the generation source and the epoch clock. Deref does not take
// the lock. The slice it returns is only safe to use while the caller holds
// the same lock, so callers bracket "validate, use, done":
//
//	a.Lock()
//	if p := a.Deref(h); p != nil {
//	    p[0] = 47
//	}
//	a.Unlock()
//
// With does the bracketing for you. Sweeps must not run while other
// goroutines are between Deref and Unlock; the lockstep scheduler in the demo
// only sweeps while every worker is parked at its barrier.
//
// # Poisoning
//
// When the table cannot grow or the heap cannot supply storage the instance is
// poisoned. Every operation except CollectAll then fails fast with
// types.ErrFailedAllocation (Deref returns nil, KeepAlive does nothing).
// CollectAll is the only way back to a healthy instance.
//
// # Usage Example
//
//	a := safemem.New(nil)
//	h, err := a.Allocate(40, 3)
//	if err != nil {
//	    return err
//	}
//	err = a.With(h, func(p []byte) error {
//	    copy(p, "hello")
//	    return nil
//	})
//	...
//	if err := a.Free(h); err != nil {
//	    return err
//	}
//
// # Related Packages
//
//   - github.com/joshuapare/safememkit/safemem/table: slot storage and growth
//   - github.com/joshuapare/safememkit/safemem/gen: generation stamps
//   - github.com/joshuapare/safememkit/safemem/epoch: lifetime clock
//   - github.com/joshuapare/safememkit/pkg/types: status taxonomy
package safemem
