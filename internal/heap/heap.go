// Package heap provides the raw storage providers a safemem allocator draws
// from.
//
// A Heap hands out zero-initialized byte slices and takes them back. The
// allocator owns every slice it obtains until it calls Release, and calls
// every method while holding its lock hook, so implementations need no
// synchronization of their own.
package heap

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrExhausted indicates a Budget heap would exceed its byte limit.
	ErrExhausted = errors.New("heap: budget exhausted")

	// ErrInjected is returned by a Faulty heap when a failure is armed.
	ErrInjected = errors.New("heap: injected allocation failure")

	// ErrNegativeSize indicates a request for a negative number of bytes.
	ErrNegativeSize = errors.New("heap: negative size")
)

// Heap is a source of zeroed storage.
type Heap interface {
	// Alloc returns n zeroed bytes. A zero-length request returns a non-nil,
	// empty slice.
	Alloc(n int) ([]byte, error)

	// Release returns b, as obtained from Alloc, to the heap. b must not be
	// used afterwards.
	Release(b []byte) error
}

// Go allocates from the Go runtime heap. Released slices are left to the
// garbage collector.
type Go struct{}

// NewGo returns the runtime-heap provider.
func NewGo() Go { return Go{} }

// Alloc implements Heap.
func (Go) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	return make([]byte, n), nil
}

// Release implements Heap.
func (Go) Release([]byte) error { return nil }

// Budget caps the bytes outstanding in an inner heap.
type Budget struct {
	inner Heap
	max   int64
	inUse int64
	peak  int64
}

// NewBudget wraps inner so that at most max bytes are outstanding at once.
func NewBudget(inner Heap, max int64) *Budget {
	return &Budget{inner: inner, max: max}
}

// Alloc implements Heap.
func (b *Budget) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if b.inUse+int64(n) > b.max {
		return nil, errors.Wrapf(ErrExhausted, "%d bytes requested, %d of %d in use", n, b.inUse, b.max)
	}
	p, err := b.inner.Alloc(n)
	if err != nil {
		return nil, err
	}
	b.inUse += int64(n)
	if b.inUse > b.peak {
		b.peak = b.inUse
	}
	return p, nil
}

// Release implements Heap.
func (b *Budget) Release(p []byte) error {
	b.inUse -= int64(len(p))
	return b.inner.Release(p)
}

// InUse returns the bytes currently outstanding.
func (b *Budget) InUse() int64 { return b.inUse }

// Peak returns the high-water mark of outstanding bytes.
func (b *Budget) Peak() int64 { return b.peak }

// Faulty wraps a heap with an armable failure, for exercising allocator
// failure paths.
type Faulty struct {
	inner     Heap
	failAfter int // successful allocations left before failing; -1 = disarmed
	allocs    int
	releases  int
}

// NewFaulty wraps inner with failures disarmed.
func NewFaulty(inner Heap) *Faulty {
	return &Faulty{inner: inner, failAfter: -1}
}

// FailAfter arms the heap to fail every allocation once n more have succeeded.
func (f *Faulty) FailAfter(n int) { f.failAfter = n }

// Disarm stops injecting failures.
func (f *Faulty) Disarm() { f.failAfter = -1 }

// Allocs returns the number of successful allocations.
func (f *Faulty) Allocs() int { return f.allocs }

// Releases returns the number of releases.
func (f *Faulty) Releases() int { return f.releases }

// Alloc implements Heap.
func (f *Faulty) Alloc(n int) ([]byte, error) {
	if f.failAfter == 0 {
		return nil, ErrInjected
	}
	p, err := f.inner.Alloc(n)
	if err != nil {
		return nil, err
	}
	if f.failAfter > 0 {
		f.failAfter--
	}
	f.allocs++
	return p, nil
}

// Release implements Heap.
func (f *Faulty) Release(p []byte) error {
	f.releases++
	return f.inner.Release(p)
}
