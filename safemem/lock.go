package safemem

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// NopLocker is a lock hook for single-goroutine use.
type NopLocker struct{}

func (NopLocker) Lock()   {}
func (NopLocker) Unlock() {}

// SpinLocker is a busy-waiting lock hook for short critical sections.
// The zero value is unlocked.
type SpinLocker struct {
	held atomic.Bool
}

// Lock spins, yielding the processor, until the lock is acquired.
func (l *SpinLocker) Lock() {
	for !l.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// Unlock releases the lock.
func (l *SpinLocker) Unlock() { l.held.Store(false) }

var (
	_ sync.Locker = NopLocker{}
	_ sync.Locker = (*SpinLocker)(nil)
)
