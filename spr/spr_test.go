package spr

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type builder struct {
	buf bytes.Buffer
}

func newBuilder(major, minor uint8) *builder {
	b := &builder{}
	b.buf.WriteString("SP")
	b.buf.WriteByte(minor)
	b.buf.WriteByte(major)
	return b
}

func (b *builder) u16(v uint16) *builder {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *builder) raw(p []byte) *builder {
	b.buf.Write(p)
	return b
}

// palette returns a 1024-byte palette with entry 1 set to pure red.
func testPalette() []byte {
	pal := make([]byte, 1024)
	pal[4] = 0xFF
	return pal
}

func TestDecodeRawIndexed(t *testing.T) {
	t.Parallel()

	// Revision 1.0 stores indexed frames as raw index bytes and has
	// no true-color section.
	data := newBuilder(1, 0).
		u16(2).
		u16(2).u16(2).raw([]byte{1, 2, 3, 4}).
		u16(2).u16(1).raw([]byte{5, 6}).
		raw(testPalette()).
		buf.Bytes()

	s, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, Version{Major: 1, Minor: 0}, s.Version)
	assert.Equal(t, 2, s.IndexedCount)
	assert.Equal(t, 0, s.RGBACount)
	require.Len(t, s.Frames, 2)

	assert.Equal(t, FrameIndexed, s.Frames[0].Type)
	assert.Equal(t, 2, s.Frames[0].Width)
	assert.Equal(t, 2, s.Frames[0].Height)
	assert.Equal(t, []byte{1, 2, 3, 4}, s.Frames[0].Pixels)

	assert.Equal(t, 2, s.Frames[1].Width)
	assert.Equal(t, 1, s.Frames[1].Height)
	assert.Equal(t, []byte{5, 6}, s.Frames[1].Pixels)

	require.NotNil(t, s.Palette)
	assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, s.Palette.Color(1))
	assert.Equal(t, color.RGBA{}, s.Palette.Color(0))
}

func TestDecodeRLEIndexed(t *testing.T) {
	t.Parallel()

	// 0x00 starts a transparent run; the next byte is the run length.
	stream := []byte{5, 0, 3, 7, 0, 2, 9}
	data := newBuilder(2, 1).
		u16(1).u16(0).
		u16(4).u16(2).u16(uint16(len(stream))).raw(stream).
		raw(testPalette()).
		buf.Bytes()

	s, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, s.Frames, 1)
	assert.Equal(t, []byte{5, 0, 0, 0, 7, 0, 0, 9}, s.Frames[0].Pixels)
}

func TestDecodeRGBAFrame(t *testing.T) {
	t.Parallel()

	// Disk order is alpha, blue, green, red with the bottom row
	// first. The decoded frame reads top-down RGBA.
	disk := []byte{
		12, 11, 10, 9, 16, 15, 14, 13, // bottom row
		4, 3, 2, 1, 8, 7, 6, 5, // top row
	}
	data := newBuilder(2, 0).
		u16(0).u16(1).
		u16(2).u16(2).raw(disk).
		buf.Bytes()

	s, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, s.Frames, 1)

	f := s.Frames[0]
	assert.Equal(t, FrameRGBA, f.Type)
	want := []byte{
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 10, 11, 12, 13, 14, 15, 16,
	}
	assert.Equal(t, want, f.Pixels)
	assert.Nil(t, s.Palette)
}

func TestDecodeZeroFrames(t *testing.T) {
	t.Parallel()

	data := newBuilder(2, 1).
		u16(0).u16(0).
		raw(testPalette()).
		buf.Bytes()

	s, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, s.Frames)
	assert.NotNil(t, s.Palette)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "wrong magic",
			data: []byte("XX\x00\x01 junk"),
			want: ErrNotSprite,
		},
		{
			name: "too short for header",
			data: []byte("SP"),
			want: ErrNotSprite,
		},
		{
			name: "future major version",
			data: newBuilder(3, 0).u16(0).u16(0).buf.Bytes(),
			want: ErrUnsupportedVersion,
		},
		{
			name: "frame count past end of data",
			data: newBuilder(1, 0).u16(5).buf.Bytes(),
			want: ErrTruncated,
		},
		{
			name: "rle run overflows frame",
			data: newBuilder(2, 1).
				u16(1).u16(0).
				u16(2).u16(2).u16(2).raw([]byte{0, 200}).
				buf.Bytes(),
			want: ErrInvalidFrame,
		},
		{
			name: "rle stream too short for frame",
			data: newBuilder(2, 1).
				u16(1).u16(0).
				u16(4).u16(4).u16(1).raw([]byte{7}).
				buf.Bytes(),
			want: ErrInvalidFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVersionAtLeast(t *testing.T) {
	t.Parallel()

	v21 := Version{Major: 2, Minor: 1}
	assert.True(t, v21.AtLeast(2, 0))
	assert.True(t, v21.AtLeast(2, 1))
	assert.True(t, v21.AtLeast(1, 9))
	assert.False(t, v21.AtLeast(2, 2))
	assert.False(t, v21.AtLeast(3, 0))
	assert.Equal(t, "2.1", v21.String())
}

// encode is a test-only writer for revision 1.0 payloads, used to
// check that decoding is lossless for indexed content.
func encode(s *Sprite) []byte {
	b := newBuilder(1, 0)
	b.u16(uint16(s.IndexedCount))
	for _, f := range s.Frames {
		b.u16(uint16(f.Width)).u16(uint16(f.Height)).raw(f.Pixels)
	}
	b.raw(s.Palette)
	return b.buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	pal := testPalette()
	orig := &Sprite{
		Version:      Version{Major: 1, Minor: 0},
		IndexedCount: 2,
		Frames: []Frame{
			{Type: FrameIndexed, Width: 3, Height: 1, Pixels: []byte{9, 8, 7}},
			{Type: FrameIndexed, Width: 1, Height: 2, Pixels: []byte{1, 0}},
		},
		Palette: pal,
	}

	decoded, err := Decode(encode(orig))
	require.NoError(t, err)
	assert.Equal(t, orig, decoded)
}
