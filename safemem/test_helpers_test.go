package safemem

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestAllocator builds an allocator with a small block size so tests can
// drive growth and slot reuse cheaply.
func newTestAllocator(t testing.TB, blockSize int) *Allocator {
	t.Helper()
	return New(&Options{BlockSize: blockSize})
}

// mustAlloc allocates or fails the test.
func mustAlloc(t testing.TB, a *Allocator, size int, lifetime uint64) Handle {
	t.Helper()
	h, err := a.Allocate(size, lifetime)
	require.NoError(t, err)
	require.False(t, h.IsInvalid())
	return h
}

// sweep runs n sweeps, failing on error.
func sweep(t testing.TB, a *Allocator, n int) {
	t.Helper()
	for range n {
		require.NoError(t, a.CollectGarbage())
	}
}

// newLoggedAllocator returns an allocator whose debug records land in the
// returned buffer as JSON lines.
func newLoggedAllocator(opts Options) (*Allocator, *bytes.Buffer) {
	var out bytes.Buffer
	opts.Logger = slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(&opts), &out
}
