package epoch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joshuapare/safememkit/pkg/types"
)

func TestClock_StartsAtFirstEpoch(t *testing.T) {
	c := NewClock()
	assert.Equal(t, uint64(types.FirstEpoch), c.Now())
}

func TestClock_AdvanceAndReset(t *testing.T) {
	c := NewClock()
	assert.Equal(t, uint64(2), c.Advance())
	assert.Equal(t, uint64(3), c.Advance())
	c.Reset()
	assert.Equal(t, uint64(1), c.Now())
}

func TestClock_DeathAt(t *testing.T) {
	c := NewClock()
	c.Advance() // now = 2

	tests := []struct {
		name     string
		lifetime uint64
		want     uint64
	}{
		{"zero lifetime never expires", 0, Never},
		{"forever sentinel", types.Forever, Never},
		{"one epoch", 1, 3},
		{"three epochs", 3, 5},
		{"overflow saturates to never", ^uint64(0) - 1, Never},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.DeathAt(tt.lifetime))
		})
	}
}

func TestClock_DueIsExactEquality(t *testing.T) {
	c := NewClock()
	death := c.DeathAt(2) // 3

	assert.False(t, c.Due(death))
	c.Advance()
	assert.False(t, c.Due(death))
	c.Advance()
	assert.True(t, c.Due(death))
	c.Advance()
	assert.False(t, c.Due(death), "a skipped death epoch is not caught up")
	assert.False(t, c.Due(Never))
}
