// Package table implements the slot table behind a safemem allocator.
//
// A Table is logically one array of tagged slots. A slot is either empty or
// occupied by exactly one live allocation (storage, generation stamp and
// scheduled death epoch). The table starts with zero slots, grows by a fixed
// block only when no empty slot can be found, and shrinks only on Reset.
//
// Invariant: a slot's storage is non-nil iff its generation is non-zero.
//
// Tables are not thread-safe. The owning allocator holds its lock hook around
// every call that mutates the table.
package table

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/safememkit/pkg/types"
	"github.com/joshuapare/safememkit/safemem/gen"
)

// ErrGrowFail indicates the table could not add another block of slots.
var ErrGrowFail = errors.New("table: grow failed")

// Slot is a copy of one table entry.
type Slot struct {
	Storage []byte
	Gen     gen.Generation
	Death   uint64
}

// Occupied reports whether the slot holds a live allocation.
func (s Slot) Occupied() bool { return !s.Gen.IsZero() }

// Stats holds table instrumentation counters.
type Stats struct {
	GrowEvents   int // blocks appended
	Scans        int // FindOrGrow calls
	SecondPasses int // scans that wrapped back to the prefix below the cursor
	SlotsVisited int // slots inspected while searching
}

// Table is a growable slot array with a remembered search cursor.
type Table struct {
	slots     []Slot
	cursor    int // next index to start scanning from
	blockSize int
	maxSlots  int // 0 = unbounded
	live      int
	stats     Stats

	// Test hook: consulted before each growth; a non-nil error fails it.
	growHook func(newLen int) error
}

// New creates an empty table that grows blockSize slots at a time and never
// beyond maxSlots (0 means unbounded).
func New(blockSize, maxSlots int) *Table {
	if blockSize < types.MinBlockSize {
		blockSize = types.DefaultBlockSize
	}
	if maxSlots < 0 {
		maxSlots = 0
	}
	return &Table{blockSize: blockSize, maxSlots: maxSlots}
}

// SetGrowHook installs fn to be called before every growth. Returning an
// error makes the growth fail as if memory were exhausted.
func (t *Table) SetGrowHook(fn func(newLen int) error) { t.growHook = fn }

// Len returns the number of slots, empty or not.
func (t *Table) Len() int { return len(t.slots) }

// Live returns the number of occupied slots.
func (t *Table) Live() int { return t.live }

// Cursor returns the index the next search starts from.
func (t *Table) Cursor() int { return t.cursor }

// BlockSize returns the growth increment.
func (t *Table) BlockSize() int { return t.blockSize }

// Stats returns a snapshot of the table counters.
func (t *Table) Stats() Stats { return t.stats }

// InRange reports whether i addresses an existing slot.
func (t *Table) InRange(i int) bool { return i >= 0 && i < len(t.slots) }

// Get returns a copy of slot i.
func (t *Table) Get(i int) (Slot, error) {
	if !t.InRange(i) {
		return Slot{}, types.ErrBadIndex
	}
	return t.slots[i], nil
}

// Match reports whether slot i is occupied by generation g.
func (t *Table) Match(i int, g gen.Generation) bool {
	if !t.InRange(i) {
		return false
	}
	s := &t.slots[i]
	return !s.Gen.IsZero() && s.Gen == g && s.Storage != nil
}

// Storage returns the storage of slot i without validation.
func (t *Table) Storage(i int) []byte {
	if !t.InRange(i) {
		return nil
	}
	return t.slots[i].Storage
}

// FindOrGrow returns the index of an empty slot, growing the table when none
// is left.
//
// The search runs from the cursor to the end of the table. If that misses and
// the cursor was non-zero, the prefix [0, cursor) is scanned once more to pick
// up slots freed below it. Only when both passes miss is a block appended, the
// cursor reset and the search retried from 0. A hit moves the cursor just past
// the returned index.
func (t *Table) FindOrGrow() (int, error) {
	t.stats.Scans++
	end := len(t.slots)
	for {
		if i, ok := t.scan(t.cursor, end); ok {
			t.cursor = i + 1
			return i, nil
		}
		if t.cursor != 0 {
			end = t.cursor
			t.cursor = 0
			t.stats.SecondPasses++
			continue
		}
		if err := t.grow(); err != nil {
			return -1, err
		}
		t.cursor = 0
		end = len(t.slots)
	}
}

func (t *Table) scan(from, end int) (int, bool) {
	for i := from; i < end; i++ {
		t.stats.SlotsVisited++
		if t.slots[i].Gen.IsZero() {
			return i, true
		}
	}
	return -1, false
}

// grow appends one block, copying every existing slot into the new backing array.
func (t *Table) grow() error {
	newLen := len(t.slots) + t.blockSize
	if t.maxSlots > 0 && newLen > t.maxSlots {
		return errors.Wrapf(ErrGrowFail, "%d slots would exceed limit of %d", newLen, t.maxSlots)
	}
	if t.growHook != nil {
		if err := t.growHook(newLen); err != nil {
			return errors.Wrapf(ErrGrowFail, "grow hook: %v", err)
		}
	}
	slots := make([]Slot, newLen)
	copy(slots, t.slots)
	t.slots = slots
	t.stats.GrowEvents++
	return nil
}

// Stamp occupies empty slot i.
func (t *Table) Stamp(i int, storage []byte, g gen.Generation, death uint64) error {
	if !t.InRange(i) {
		return types.ErrBadIndex
	}
	if storage == nil || g.IsZero() {
		return errors.Newf("table: slot %d stamped with nil storage or zero generation", i)
	}
	s := &t.slots[i]
	if !s.Gen.IsZero() {
		return errors.Wrapf(types.ErrInvalidState, "slot %d already occupied", i)
	}
	*s = Slot{Storage: storage, Gen: g, Death: death}
	t.live++
	return nil
}

// SetDeath reschedules the death epoch of occupied slot i.
func (t *Table) SetDeath(i int, death uint64) error {
	if !t.InRange(i) {
		return types.ErrBadIndex
	}
	s := &t.slots[i]
	if s.Gen.IsZero() {
		return types.ErrInvalidState
	}
	s.Death = death
	return nil
}

// Clear empties slot i and hands its storage back for release.
func (t *Table) Clear(i int) ([]byte, error) {
	if !t.InRange(i) {
		return nil, types.ErrBadIndex
	}
	s := &t.slots[i]
	if s.Gen.IsZero() {
		return nil, types.ErrInvalidState
	}
	storage := s.Storage
	*s = Slot{}
	t.live--
	return storage, nil
}

// Each calls fn for every occupied slot in index order. fn may Clear the slot
// it is given. Iteration stops when fn returns false.
func (t *Table) Each(fn func(i int, s Slot) bool) {
	for i := range t.slots {
		if t.slots[i].Gen.IsZero() {
			continue
		}
		if !fn(i, t.slots[i]) {
			return
		}
	}
}

// Reset drops every slot and the backing array. Storage still referenced by
// the slots is not released; callers drain the table first.
func (t *Table) Reset() {
	t.slots = nil
	t.cursor = 0
	t.live = 0
	t.stats = Stats{}
}

// Validate checks the table's structural invariants.
func (t *Table) Validate() error {
	if t.cursor < 0 || t.cursor > len(t.slots) {
		return errors.Newf("cursor %d outside table of %d slots", t.cursor, len(t.slots))
	}
	if len(t.slots)%t.blockSize != 0 {
		return errors.Newf("table length %d is not a multiple of block size %d", len(t.slots), t.blockSize)
	}
	live := 0
	seen := make(map[gen.Generation]int, t.live)
	for i := range t.slots {
		s := &t.slots[i]
		if s.Gen.IsZero() {
			if s.Storage != nil {
				return errors.Newf("slot %d holds storage but has the empty generation", i)
			}
			if s.Death != 0 {
				return errors.Newf("empty slot %d has death epoch %d", i, s.Death)
			}
			continue
		}
		if s.Storage == nil {
			return errors.Newf("slot %d has generation %s but no storage", i, s.Gen)
		}
		if prev, dup := seen[s.Gen]; dup {
			return errors.Newf("slots %d and %d share generation %s", prev, i, s.Gen)
		}
		seen[s.Gen] = i
		live++
	}
	if live != t.live {
		return errors.Newf("counted %d occupied slots, but the table tracks %d", live, t.live)
	}
	return nil
}
