package types

import "errors"

// -----------------------------------------------------------------------------
// Status taxonomy (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// Status classifies allocator outcomes so callers can branch on intent rather than text.
type Status int

const (
	StatusOK               Status = iota // success
	StatusBadPointer                     // handle index outside the current table
	StatusBadIndex                       // slot-level index validation failed
	StatusInvalidState                   // stale handle, double free, unoccupied slot
	StatusFailedAllocation               // instance poisoned by a heap or growth failure
)

// String returns the canonical name of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBadPointer:
		return "bad pointer"
	case StatusBadIndex:
		return "bad index"
	case StatusInvalidState:
		return "invalid state"
	case StatusFailedAllocation:
		return "failed allocation"
	default:
		return "unknown status"
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Status Status
	Msg    string
	Err    error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches an *Error with the same status and message, so a copy made by
// Wrap still compares equal to its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Status == t.Status && e.Msg == t.Msg
}

// Sentinels returned by the allocator.
var (
	// ErrBadPointer indicates the handle's index is outside the slot table.
	ErrBadPointer = &Error{Status: StatusBadPointer, Msg: "safemem: bad pointer"}
	// ErrBadIndex indicates an out-of-range slot index inside the table.
	ErrBadIndex = &Error{Status: StatusBadIndex, Msg: "safemem: bad slot index"}
	// ErrInvalidState indicates a stale handle, a double free or an empty slot.
	ErrInvalidState = &Error{Status: StatusInvalidState, Msg: "safemem: invalid handle state"}
	// ErrFailedAllocation indicates the allocator is poisoned.
	ErrFailedAllocation = &Error{Status: StatusFailedAllocation, Msg: "safemem: failed allocation"}
	// ErrOutOfBounds indicates an access past the extent requested at allocation.
	ErrOutOfBounds = &Error{Status: StatusBadIndex, Msg: "safemem: access past end of allocation"}
	// ErrInvalidSize indicates a negative or overflowing allocation size.
	ErrInvalidSize = &Error{Status: StatusInvalidState, Msg: "safemem: invalid allocation size"}
)

// Wrap returns a copy of sentinel carrying cause as its underlying error.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{Status: sentinel.Status, Msg: sentinel.Msg, Err: cause}
}

// StatusOf maps err back onto the taxonomy. A nil error is StatusOK; an error
// outside the taxonomy reports StatusInvalidState.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Status
	}
	return StatusInvalidState
}
