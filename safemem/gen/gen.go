// Package gen issues the 128-bit generation stamps that distinguish one
// allocation from every other allocation that ever occupied the same slot.
//
// A Generation is two 64-bit words. The counter starts at {0,1}, so the
// all-zero value is never issued and can mark an empty slot. Wraparound of
// 128 bits does not happen within a process lifetime and is not handled.
package gen

import (
	"fmt"
	"math/bits"
)

// Generation is a 128-bit allocation stamp. Hi holds the carry word.
type Generation struct {
	Hi uint64
	Lo uint64
}

var (
	// Zero is the empty-slot sentinel. It is never returned by Next.
	Zero = Generation{}

	// Max is stamped into failure handles; it cannot match a live slot before
	// the counter wraps.
	Max = Generation{Hi: ^uint64(0), Lo: ^uint64(0)}

	// First is the value a fresh Source hands out first.
	First = Generation{Hi: 0, Lo: 1}
)

// IsZero reports whether g is the empty sentinel.
func (g Generation) IsZero() bool { return g == Zero }

// Less orders generations by issue time.
func (g Generation) Less(o Generation) bool {
	if g.Hi != o.Hi {
		return g.Hi < o.Hi
	}
	return g.Lo < o.Lo
}

// String formats g as "hi:lo" in hex.
func (g Generation) String() string {
	return fmt.Sprintf("%x:%016x", g.Hi, g.Lo)
}

// Source is a monotonically increasing generation counter.
// It is not synchronized; the owning allocator serializes access.
type Source struct {
	next Generation
}

// NewSource returns a Source whose first Next is First.
func NewSource() *Source {
	return &Source{next: First}
}

// Next returns the current counter value and advances it by one,
// carrying from Lo into Hi.
func (s *Source) Next() Generation {
	g := s.next
	var carry uint64
	s.next.Lo, carry = bits.Add64(s.next.Lo, 1, 0)
	s.next.Hi += carry
	return g
}

// Peek returns the value the next call to Next will issue.
func (s *Source) Peek() Generation { return s.next }

// Reset returns the counter to First.
func (s *Source) Reset() { s.next = First }
