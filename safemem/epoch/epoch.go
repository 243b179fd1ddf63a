// Package epoch implements the logical clock that drives lifetime expiry.
//
// The clock starts at 1 and moves forward by exactly one unit per collector
// sweep. Lifetimes are measured in epochs, never wall-clock time. A scheduled
// death epoch of 0 (Never) is never reached, which is how "no auto-expiry"
// allocations are represented.
package epoch

import (
	"math/bits"

	"github.com/joshuapare/safememkit/pkg/types"
)

// Never is the death epoch of an allocation that only teardown reclaims.
const Never uint64 = 0

// Clock is a monotonically advancing epoch counter.
// It is not synchronized; the owning allocator serializes access.
type Clock struct {
	now uint64
}

// NewClock returns a clock at types.FirstEpoch.
func NewClock() *Clock {
	return &Clock{now: types.FirstEpoch}
}

// Now returns the current epoch.
func (c *Clock) Now() uint64 { return c.now }

// Advance moves the clock forward by one epoch and returns the new value.
func (c *Clock) Advance() uint64 {
	c.now++
	return c.now
}

// Reset returns the clock to types.FirstEpoch.
func (c *Clock) Reset() { c.now = types.FirstEpoch }

// DeathAt schedules a death epoch lifetime epochs from now.
// Lifetimes of 0 or types.Forever, and sums that overflow, yield Never.
func (c *Clock) DeathAt(lifetime uint64) uint64 {
	if lifetime == 0 || lifetime == types.Forever {
		return Never
	}
	death, carry := bits.Add64(c.now, lifetime, 0)
	if carry != 0 || death == Never {
		return Never
	}
	return death
}

// Due reports whether an allocation scheduled to die at death is reclaimed by
// a sweep running now. Expiry is exact equality: epochs skipped by not
// sweeping leave such allocations alive.
func (c *Clock) Due(death uint64) bool {
	return death != Never && death == c.now
}
