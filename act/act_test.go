package act

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type builder struct {
	buf bytes.Buffer
}

func newBuilder(major, minor uint8, actions uint16) *builder {
	b := &builder{}
	b.buf.WriteString("AC")
	b.buf.WriteByte(minor)
	b.buf.WriteByte(major)
	b.u16(actions)
	b.raw(make([]byte, headerReserved))
	return b
}

func (b *builder) u16(v uint16) *builder {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *builder) i32(v int32) *builder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	b.buf.Write(tmp[:])
	return b
}

func (b *builder) f32(v float32) *builder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	b.buf.Write(tmp[:])
	return b
}

func (b *builder) raw(p []byte) *builder {
	b.buf.Write(p)
	return b
}

func (b *builder) frameHead(layers int32) *builder {
	b.raw(make([]byte, frameReserved))
	return b.i32(layers)
}

func (b *builder) baseLayer(x, y, sprite, mirror int32) *builder {
	return b.i32(x).i32(y).i32(sprite).i32(mirror)
}

func (b *builder) event(name string) *builder {
	field := make([]byte, eventNameSize)
	copy(field, name)
	return b.raw(field)
}

func TestDecodeLegacyRevision(t *testing.T) {
	t.Parallel()

	// Revision 1.1 has bare layers and no trailer blocks.
	data := newBuilder(1, 1, 1).
		i32(1).
		frameHead(1).
		baseLayer(10, -20, 3, 1).
		buf.Bytes()

	s, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, Version{Major: 1, Minor: 1}, s.Version)
	require.Len(t, s.Actions, 1)
	require.Len(t, s.Actions[0].Frames, 1)
	require.Len(t, s.Actions[0].Frames[0].Layers, 1)

	l := s.Actions[0].Frames[0].Layers[0]
	assert.Equal(t, int32(10), l.X)
	assert.Equal(t, int32(-20), l.Y)
	assert.Equal(t, int32(3), l.SpriteIndex)
	assert.True(t, l.Mirrored)
	assert.Equal(t, float32(1), l.ScaleX)
	assert.Equal(t, float32(1), l.ScaleY)

	f := s.Actions[0].Frames[0]
	assert.Equal(t, NoEvent, f.EventID)
	assert.Empty(t, f.Anchors)
	assert.Empty(t, s.Events)
	assert.Equal(t, float32(DefaultInterval), s.Actions[0].Interval)
}

func TestDecodeRevision20(t *testing.T) {
	t.Parallel()

	// Revision 2.0 adds layer color, a single scale, rotation, sprite
	// type, and a per-frame event id. Scale Y mirrors scale X until
	// revision 2.4.
	data := newBuilder(2, 0, 1).
		i32(1).
		frameHead(1).
		baseLayer(1, 2, 0, 0).
		raw([]byte{0x10, 0x20, 0x30, 0x40}). // tint
		f32(2.5).                            // scale x
		i32(90).                             // rotation
		i32(1).                              // sprite type
		i32(7).                              // event id
		buf.Bytes()

	s, err := Decode(data)
	require.NoError(t, err)

	f := s.Actions[0].Frames[0]
	assert.Equal(t, int32(7), f.EventID)

	l := f.Layers[0]
	assert.Equal(t, [4]uint8{0x10, 0x20, 0x30, 0x40}, l.Tint)
	assert.Equal(t, float32(2.5), l.ScaleX)
	assert.Equal(t, float32(2.5), l.ScaleY)
	assert.Equal(t, int32(90), l.Rotation)
	assert.Equal(t, int32(1), l.SpriteType)
	assert.Equal(t, float32(DefaultInterval), s.Actions[0].Interval)
}

func TestDecodeRevision25Full(t *testing.T) {
	t.Parallel()

	b := newBuilder(2, 5, 2)

	// Action 0: one frame, one fully populated layer, one anchor.
	b.i32(1).
		frameHead(1).
		baseLayer(-4, 8, 2, 0).
		raw([]byte{0xFF, 0xFF, 0xFF, 0xFF}).
		f32(1.5). // scale x
		f32(0.5). // scale y
		i32(45).
		i32(0).
		i32(64). // width
		i32(64). // height
		i32(NoEvent).
		i32(1).          // anchor count
		i32(0).          // anchor reserved
		i32(12).i32(34). // anchor x, y
		i32(0) // anchor attr

	// Action 1: one frame with no layers and no anchors.
	b.i32(1).
		frameHead(0).
		i32(0). // event id
		i32(0) // anchor count

	// Trailer: events then per-action speeds.
	b.i32(2).event("atk").event("hit")
	b.f32(4).f32(6)

	s, err := Decode(b.buf.Bytes())
	require.NoError(t, err)

	require.Len(t, s.Actions, 2)
	assert.Equal(t, []string{"atk", "hit"}, s.Events)

	l := s.Actions[0].Frames[0].Layers[0]
	assert.Equal(t, float32(1.5), l.ScaleX)
	assert.Equal(t, float32(0.5), l.ScaleY)
	assert.Equal(t, int32(64), l.Width)
	assert.Equal(t, int32(64), l.Height)

	f := s.Actions[0].Frames[0]
	require.Len(t, f.Anchors, 1)
	assert.Equal(t, Anchor{X: 12, Y: 34, Attr: 0}, f.Anchors[0])
	assert.Equal(t, NoEvent, f.EventID)

	assert.Equal(t, int32(0), s.Actions[1].Frames[0].EventID)
	assert.Empty(t, s.Actions[1].Frames[0].Layers)

	// Stored speeds scale to milliseconds.
	assert.Equal(t, float32(100), s.Actions[0].Interval)
	assert.Equal(t, float32(150), s.Actions[1].Interval)
}

func TestDecodeAbsentTrailer(t *testing.T) {
	t.Parallel()

	// A revision 2.2 payload may end right after the last action. Both
	// trailer blocks decode as defaults.
	data := newBuilder(2, 2, 1).
		i32(1).
		frameHead(0).
		i32(0). // event id
		buf.Bytes()

	s, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, s.Events)
	require.Len(t, s.Actions, 1)
	assert.Equal(t, float32(DefaultInterval), s.Actions[0].Interval)

	// An event table without the speed block that follows it is also
	// valid; intervals keep their default.
	data = newBuilder(2, 2, 1).
		i32(1).
		frameHead(0).
		i32(0).
		i32(1).event("atk").
		buf.Bytes()

	s, err = Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"atk"}, s.Events)
	assert.Equal(t, float32(DefaultInterval), s.Actions[0].Interval)
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
			data: []byte("ZZ\x00\x02 junk"),
			want: ErrNotAction,
		},
		{
			name: "too short for header",
			data: []byte("AC"),
			want: ErrNotAction,
		},
		{
			name: "future major version",
			data: newBuilder(3, 0, 0).buf.Bytes(),
			want: ErrUnsupportedVersion,
		},
		{
			name: "action count past end of data",
			data: newBuilder(2, 0, 4).buf.Bytes(),
			want: ErrTruncated,
		},
		{
			name: "frame count past end of data",
			data: newBuilder(2, 0, 1).i32(9).buf.Bytes(),
			want: ErrTruncated,
		},
		{
			name: "layer block cut short",
			data: newBuilder(2, 0, 1).i32(1).frameHead(1).i32(5).buf.Bytes(),
			want: ErrTruncated,
		},
		{
			name: "negative layer count",
			data: newBuilder(2, 0, 1).i32(1).frameHead(-2).buf.Bytes(),
			want: ErrTruncated,
		},
		{
			name: "event table cut short",
			data: newBuilder(2, 1, 0).i32(3).event("only-one").buf.Bytes(),
			want: ErrTruncated,
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

func TestDanglingLayers(t *testing.T) {
	t.Parallel()

	s := &ActionSet{
		Actions: []Action{
			{Frames: []Frame{
				{Layers: []Layer{
					{SpriteIndex: 0},
					{SpriteIndex: 5},
					{SpriteIndex: -1}, // empty layer, never dangling
				}},
			}},
			{Frames: []Frame{
				{Layers: []Layer{{SpriteIndex: 2}}},
			}},
		},
	}

	refs := s.DanglingLayers(3)
	require.Len(t, refs, 1)
	assert.Equal(t, LayerRef{Action: 0, Frame: 0, Layer: 1, SpriteIndex: 5}, refs[0])

	assert.Empty(t, s.DanglingLayers(6))
}
