package types

// ============================================================================
// Allocator limits
// ============================================================================

const (
	// DefaultBlockSize is the number of slots added to a table per growth event.
	DefaultBlockSize = 512

	// MinBlockSize is the smallest accepted growth block.
	MinBlockSize = 1

	// Forever is the lifetime sentinel for "never collected by a sweep".
	// A lifetime of 0 has the same meaning.
	Forever = ^uint64(0)

	// FirstEpoch is the value the epoch clock holds on a fresh instance.
	FirstEpoch = 1
)
