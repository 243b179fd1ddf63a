// Package types defines the status taxonomy shared by the safememkit packages.
//
// Every mutating operation on an allocator reports one of a small, stable set
// of outcomes. They are returned as values (never panics) so callers can
// branch on intent rather than on message text:
//
//   - StatusOK: the operation succeeded (a nil error)
//   - StatusBadPointer: the handle's index lies outside the current table
//   - StatusBadIndex: index-level validation failed inside the slot table
//   - StatusInvalidState: the handle is stale, already freed, or never valid
//   - StatusFailedAllocation: the allocator is poisoned
//
// This package has no dependencies beyond the standard library.
package types
