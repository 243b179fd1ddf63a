package buf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndianHelpers(t *testing.T) {
	data := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

	assert.Equal(t, uint32(0x67452301), U32LE(data))
	assert.Equal(t, uint64(0xefcdab8967452301), U64LE(data))

	short := []byte{0xAA}
	assert.Zero(t, U32LE(short))
	assert.Zero(t, U64LE(short))
}

func TestPutHelpers(t *testing.T) {
	b := make([]byte, 8)
	assert.True(t, PutU32LE(b, 0xdeadbeef))
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde, 0, 0, 0, 0}, b)

	assert.True(t, PutU64LE(b, 0x0102030405060708))
	assert.Equal(t, uint64(0x0102030405060708), U64LE(b))

	short := make([]byte, 3)
	assert.False(t, PutU32LE(short, 1))
	assert.False(t, PutU64LE(b[:7], 1))
	assert.Equal(t, []byte{0, 0, 0}, short, "short writes must not touch the buffer")
}
