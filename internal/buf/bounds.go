package buf

import (
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false on
// overflow or when either operand is negative.
// This is what count * elemSize sizing goes through.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}

// ElemOffset returns the byte offset of element i of size elemSize, provided
// the whole element lies below limit.
//
//	off, ok := buf.ElemOffset(h.Size, i, 4)
//	if !ok {
//	    return // element i would read past the allocation
//	}
func ElemOffset(limit, i, elemSize int) (int, bool) {
	if i < 0 || elemSize <= 0 || limit < 0 {
		return 0, false
	}
	off, ok := MulOverflowSafe(i, elemSize)
	if !ok {
		return 0, false
	}
	end, ok := AddOverflowSafe(off, elemSize)
	if !ok || end > limit {
		return 0, false
	}
	return off, true
}

// Elem returns the bytes of element i of size elemSize within b.
func Elem(b []byte, i, elemSize int) ([]byte, bool) {
	off, ok := ElemOffset(len(b), i, elemSize)
	if !ok {
		return nil, false
	}
	return b[off : off+elemSize], true
}
