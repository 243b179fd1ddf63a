package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusOK, "ok"},
		{StatusBadPointer, "bad pointer"},
		{StatusBadIndex, "bad index"},
		{StatusInvalidState, "invalid state"},
		{StatusFailedAllocation, "failed allocation"},
		{Status(99), "unknown status"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusBadPointer, StatusOf(ErrBadPointer))
	assert.Equal(t, StatusFailedAllocation, StatusOf(fmt.Errorf("alloc: %w", ErrFailedAllocation)))
	assert.Equal(t, StatusInvalidState, StatusOf(errors.New("foreign")))
	assert.Equal(t, StatusInvalidState, StatusOf(ErrInvalidSize))
}

func TestWrap_PreservesCauseAndSentinel(t *testing.T) {
	cause := errors.New("mmap: cannot allocate memory")
	err := Wrap(ErrFailedAllocation, cause)

	require.ErrorIs(t, err, ErrFailedAllocation)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "safemem: failed allocation: mmap: cannot allocate memory", err.Error())
	assert.NotErrorIs(t, err, ErrBadPointer)
}

func TestError_NilReceiver(t *testing.T) {
	var e *Error
	assert.Equal(t, "<nil>", e.Error())
}

func TestIs_DistinguishesSentinelsSharingAStatus(t *testing.T) {
	assert.NotErrorIs(t, ErrInvalidSize, ErrInvalidState)
	assert.Equal(t, StatusOf(ErrInvalidSize), StatusOf(ErrInvalidState))
}
