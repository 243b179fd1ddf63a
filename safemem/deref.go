package safemem

import (
	"io"

	"github.com/joshuapare/safememkit/internal/buf"
	"github.com/joshuapare/safememkit/pkg/types"
)

// Deref validates h and returns its storage, exactly h.Size() bytes long.
// It returns nil when the allocator is poisoned, the index is out of range,
// or the slot is empty or holds another generation.
//
// Deref does not take the lock hook. The returned slice is only safe to use
// while the caller holds it (see Lock, With): a concurrent Free or sweep of
// the same slot is a data race.
func (a *Allocator) Deref(h Handle) []byte {
	if a.poisoned.Load() {
		return nil
	}
	if !a.table.Match(h.index, h.gen) {
		return nil
	}
	storage := a.table.Storage(h.index)
	if h.size < 0 || h.size > len(storage) {
		return nil
	}
	return storage[:h.size]
}

// Valid reports whether h currently validates. Like Deref, the answer is only
// stable while the caller holds the lock hook.
func (a *Allocator) Valid(h Handle) bool {
	return a.Deref(h) != nil
}

// With runs fn on h's storage while holding the lock hook.
// It returns types.ErrFailedAllocation when poisoned and
// types.ErrInvalidState when h does not validate; otherwise fn's error.
// fn must not call back into the allocator's locking methods.
func (a *Allocator) With(h Handle, fn func(p []byte) error) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.poisoned.Load() {
		return types.ErrFailedAllocation
	}
	p := a.Deref(h)
	if p == nil {
		return types.ErrInvalidState
	}
	return fn(p)
}

// Guard reports whether element i of elemSize bytes lies inside h's
// requested extent and h validates. Callers hold the lock hook.
func (a *Allocator) Guard(h Handle, i, elemSize int) bool {
	if _, ok := buf.ElemOffset(h.size, i, elemSize); !ok {
		return false
	}
	return a.Valid(h)
}

// Uint32At reads the i-th little-endian uint32 of h's storage.
// ok is false for a stale handle or an index past the allocation.
// Callers hold the lock hook.
func (a *Allocator) Uint32At(h Handle, i int) (v uint32, ok bool) {
	e, ok := buf.Elem(a.Deref(h), i, 4)
	if !ok {
		return 0, false
	}
	return buf.U32LE(e), true
}

// PutUint32At writes the i-th little-endian uint32 of h's storage and reports
// whether the write happened. Callers hold the lock hook.
func (a *Allocator) PutUint32At(h Handle, i int, v uint32) bool {
	e, ok := buf.Elem(a.Deref(h), i, 4)
	return ok && buf.PutU32LE(e, v)
}

// Uint64At reads the i-th little-endian uint64 of h's storage.
// Callers hold the lock hook.
func (a *Allocator) Uint64At(h Handle, i int) (v uint64, ok bool) {
	e, ok := buf.Elem(a.Deref(h), i, 8)
	if !ok {
		return 0, false
	}
	return buf.U64LE(e), true
}

// PutUint64At writes the i-th little-endian uint64 of h's storage.
// Callers hold the lock hook.
func (a *Allocator) PutUint64At(h Handle, i int, v uint64) bool {
	e, ok := buf.Elem(a.Deref(h), i, 8)
	return ok && buf.PutU64LE(e, v)
}

// ReadAt copies h's storage starting at off into p, with io.ReaderAt
// semantics: fewer than len(p) bytes come with io.EOF.
// Callers hold the lock hook.
func (a *Allocator) ReadAt(h Handle, p []byte, off int) (int, error) {
	storage := a.Deref(h)
	if storage == nil {
		return 0, a.staleErr()
	}
	if off < 0 {
		return 0, types.ErrOutOfBounds
	}
	if off >= len(storage) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, storage[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt copies p into h's storage at off. A write that would run past the
// allocation is refused whole with types.ErrOutOfBounds.
// Callers hold the lock hook.
func (a *Allocator) WriteAt(h Handle, p []byte, off int) (int, error) {
	storage := a.Deref(h)
	if storage == nil {
		return 0, a.staleErr()
	}
	dst, ok := buf.Slice(storage, off, len(p))
	if !ok {
		return 0, types.ErrOutOfBounds
	}
	return copy(dst, p), nil
}

func (a *Allocator) staleErr() error {
	if a.poisoned.Load() {
		return types.ErrFailedAllocation
	}
	return types.ErrInvalidState
}
