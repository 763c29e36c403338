package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader(t *testing.T) {
	t.Parallel()

	buf := []byte{
		0x2A,                   // u8
		0x34, 0x12,             // u16
		0x78, 0x56, 0x34, 0x12, // u32
		0x00, 0x00, 0x80, 0xBF, // f32 -1
		'a', 'b', 'c', 0x00, // cstring
		'x', 'y', 0x00, 0x00, // fixed string, width 4
	}
	r := NewReader(buf)

	assert.Equal(t, uint8(0x2A), r.U8())
	assert.Equal(t, uint16(0x1234), r.U16())
	assert.Equal(t, uint32(0x12345678), r.U32())
	assert.Equal(t, float32(-1), r.F32())
	assert.Equal(t, "abc", r.CString())
	assert.Equal(t, "xy", r.FixedString(4))
	require.NoError(t, r.Err())
	assert.Equal(t, 0, r.Remaining())
}

func TestReaderStickyError(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0x01, 0x02})
	assert.Equal(t, uint16(0x0201), r.U16())
	require.NoError(t, r.Err())

	// First short read trips the error; everything after returns
	// zero values.
	assert.Equal(t, uint32(0), r.U32())
	require.ErrorIs(t, r.Err(), ErrShort)
	assert.Equal(t, uint8(0), r.U8())
	assert.Equal(t, "", r.CString())
	assert.Equal(t, 0, r.Remaining())
}

func TestReaderCStringMissingTerminator(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte("no terminator"))
	assert.Equal(t, "", r.CString())
	require.ErrorIs(t, r.Err(), ErrShort)
}

func TestReaderSignedAndNegative(t *testing.T) {
	t.Parallel()

	r := NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	assert.Equal(t, int32(-1), r.I32())
	require.NoError(t, r.Err())
}
