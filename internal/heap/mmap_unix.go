//go:build unix

package heap

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Mmap backs every allocation with its own anonymous private mapping. Pages
// come back zeroed from the kernel and are unmapped on Release, so a stray
// access through a stale slice faults instead of reading reused memory.
type Mmap struct{}

// NewMmap returns the anonymous-mapping provider.
func NewMmap() Heap { return Mmap{} }

// Alloc implements Heap.
func (Mmap) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if n == 0 {
		return []byte{}, nil
	}
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "heap: mmap %d bytes", n)
	}
	return b, nil
}

// Release implements Heap.
func (Mmap) Release(b []byte) error {
	if cap(b) == 0 {
		return nil
	}
	err := unix.Munmap(b)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
