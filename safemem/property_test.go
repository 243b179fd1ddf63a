package safemem

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/safememkit/pkg/types"
)

// model mirrors what the allocator should hold after a sequence of operations.
type model struct {
	epoch uint64
	live  map[Handle]uint64 // handle -> death epoch (0 = never)
	dead  []Handle
}

func newModel() *model {
	return &model{epoch: types.FirstEpoch, live: make(map[Handle]uint64)}
}

func (m *model) deathAt(lifetime uint64) uint64 {
	if lifetime == 0 {
		return 0
	}
	return m.epoch + lifetime
}

func (m *model) sweep() {
	for h, death := range m.live {
		if death == m.epoch {
			delete(m.live, h)
			m.dead = append(m.dead, h)
		}
	}
	m.epoch++
}

// pick returns the n-th live handle ordered by slot index, or false.
func (m *model) pick(n int) (Handle, bool) {
	if len(m.live) == 0 {
		return Handle{}, false
	}
	hs := make([]Handle, 0, len(m.live))
	for h := range m.live {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].index < hs[j].index })
	return hs[n%len(hs)], true
}

// runOps drives a and the model with one operation per byte and checks they
// agree after every step.
func runOps(t *testing.T, ops []byte) {
	t.Helper()
	a := New(&Options{BlockSize: 4, Locker: NopLocker{}})
	m := newModel()

	for step, b := range ops {
		arg := int(b >> 3)
		switch b % 5 {
		case 0, 1: // allocate
			life := uint64(arg % 4)
			h, err := a.Allocate(arg, life)
			require.NoError(t, err, "step %d", step)
			m.live[h] = m.deathAt(life)
		case 2: // free
			if h, ok := m.pick(arg); ok {
				require.NoError(t, a.Free(h), "step %d", step)
				delete(m.live, h)
				m.dead = append(m.dead, h)
			} else if len(m.dead) > 0 {
				err := a.Free(m.dead[arg%len(m.dead)])
				require.Error(t, err, "step %d: freeing a dead handle must fail", step)
			}
		case 3: // keep alive
			if h, ok := m.pick(arg); ok {
				life := uint64(arg % 3)
				a.KeepAlive(h, life)
				m.live[h] = m.deathAt(life)
			}
		case 4: // sweep
			require.NoError(t, a.CollectGarbage(), "step %d", step)
			m.sweep()
		}

		require.NoError(t, a.Validate(), "step %d", step)
		require.Equal(t, len(m.live), a.Live(), "step %d", step)
		require.Equal(t, m.epoch, a.Epoch(), "step %d", step)
		for h := range m.live {
			require.True(t, a.Valid(h), "step %d: %s should be live", step, h)
			require.Len(t, a.Deref(h), h.Size())
		}
		for _, h := range m.dead {
			require.False(t, a.Valid(h), "step %d: %s should be dead", step, h)
		}
	}

	require.NoError(t, a.CollectAll())
	require.Equal(t, 0, a.Live())
	for h := range m.live {
		require.False(t, a.Valid(h))
	}
}

func TestProperty_RandomOperationsMatchModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility
	for round := range 20 {
		ops := make([]byte, 300)
		rng.Read(ops)
		t.Run("", func(t *testing.T) {
			t.Logf("round %d", round)
			runOps(t, ops)
		})
	}
}

func FuzzAllocatorOperations(f *testing.F) {
	f.Add([]byte{0, 8, 16, 4, 4, 4, 2, 3, 4})
	f.Add([]byte{1, 1, 1, 1, 1, 2, 2, 2, 0, 0, 4, 4})
	f.Add([]byte{0x18, 0x13, 0x22, 0x04, 0x0c, 0x14})
	f.Fuzz(func(t *testing.T, ops []byte) {
		if len(ops) > 512 {
			ops = ops[:512]
		}
		runOps(t, ops)
	})
}
