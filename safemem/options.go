package safemem

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/joshuapare/safememkit/internal/heap"
	"github.com/joshuapare/safememkit/pkg/types"
)

// Runtime debug flag for allocation logging - controlled by SAFEMEM_LOG_ALLOC env var.
var logAlloc = os.Getenv("SAFEMEM_LOG_ALLOC") != ""

// Forever is the lifetime that never expires through a sweep.
const Forever = types.Forever

// Heap is a type alias for the storage provider interface defined in internal/heap.
// It lets callers supply their own provider without importing an internal package.
type Heap = heap.Heap

// RuntimeHeap returns a provider backed by the Go heap.
func RuntimeHeap() Heap { return heap.NewGo() }

// MmapHeap returns a provider that gives every allocation its own anonymous
// mapping and unmaps it on release. On platforms without mmap it falls back
// to RuntimeHeap.
func MmapHeap() Heap { return heap.NewMmap() }

// Options configures an Allocator.
//
// Use DefaultOptions() for production-ready defaults.
type Options struct {
	// Locker is the lock hook guarding all shared state.
	// Default: a new *sync.Mutex
	// Use NopLocker{} for single-goroutine use, &SpinLocker{} for very short
	// critical sections.
	Locker sync.Locker

	// Heap supplies the raw storage.
	// Default: RuntimeHeap()
	Heap Heap

	// BlockSize is the number of slots added per table growth.
	// Default: 512
	BlockSize int

	// MaxSlots caps the slot table. Growth past it poisons the allocator.
	// Default: 0 (unbounded)
	MaxSlots int

	// MaxBytes caps the bytes outstanding at once. An allocation that would
	// exceed it poisons the allocator.
	// Default: 0 (unbounded)
	MaxBytes int64

	// Logger receives debug records for growth, allocation, frees, sweeps
	// and poisoning.
	// Default: discard, or a stderr text logger at debug level when
	// SAFEMEM_LOG_ALLOC is set.
	Logger *slog.Logger
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Locker:    new(sync.Mutex),
		Heap:      RuntimeHeap(),
		BlockSize: types.DefaultBlockSize,
	}
}

// withDefaults returns a copy of o with zero fields filled in.
func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.Locker == nil {
		out.Locker = new(sync.Mutex)
	}
	if out.Heap == nil {
		out.Heap = RuntimeHeap()
	}
	if out.BlockSize < types.MinBlockSize {
		out.BlockSize = types.DefaultBlockSize
	}
	if out.MaxSlots < 0 {
		out.MaxSlots = 0
	}
	if out.MaxBytes > 0 {
		out.Heap = heap.NewBudget(out.Heap, out.MaxBytes)
	}
	if out.Logger == nil {
		out.Logger = defaultLogger()
	}
	return out
}

func defaultLogger() *slog.Logger {
	if logAlloc {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
