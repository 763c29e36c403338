// Package act decodes the client action container: per-direction
// animation sequences built from layered sprite frames, with optional
// trigger events, per-action playback speeds, and attachment anchors.
// Later container revisions add fields; the decoder gates every
// optional block on the revision read from the header, so a single
// code path handles the whole family.
package act

import (
	"errors"
	"fmt"

	"github.com/assetharvest/grfkit/internal/wire"
)

var (
	// ErrNotAction reports a payload without the action magic.
	ErrNotAction = errors.New("act: not an action file")

	// ErrUnsupportedVersion reports a revision this decoder does not
	// understand.
	ErrUnsupportedVersion = errors.New("act: unsupported version")

	// ErrTruncated reports counts or blocks extending past the end of
	// the data.
	ErrTruncated = errors.New("act: truncated data")
)

const (
	magic = "AC"
	// headerReserved pads the header to 16 bytes before action data.
	headerReserved = 10
	// frameReserved is the unused bounds block at the head of every
	// frame.
	frameReserved = 32
	// eventNameSize is the fixed width of a trigger event name.
	eventNameSize = 40
	// NoEvent marks a frame without a trigger event.
	NoEvent = int32(-1)
	// DefaultInterval is the frame interval in milliseconds for
	// revisions without per-action speeds.
	DefaultInterval = 150.0
	// intervalScale converts a stored speed value to milliseconds.
	intervalScale = 25.0
	maxMajor      = 2
)

// Version is an action container revision, stored minor byte first.
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

func (v Version) AtLeast(major, minor uint8) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// caps is the feature set a revision carries, computed once at decode.
type caps struct {
	layerExtras bool // color, scale, rotation, sprite type
	events      bool
	speeds      bool
	anchors     bool
	scaleY      bool
	dimensions  bool
}

func capsFor(v Version) caps {
	return caps{
		layerExtras: v.AtLeast(2, 0),
		events:      v.AtLeast(2, 1),
		speeds:      v.AtLeast(2, 2),
		anchors:     v.AtLeast(2, 3),
		scaleY:      v.AtLeast(2, 4),
		dimensions:  v.AtLeast(2, 5),
	}
}

// Layer places one sprite frame inside an animation frame.
type Layer struct {
	X, Y int32
	// SpriteIndex refers to a frame of the companion sprite file.
	// Negative values mean an empty layer. The reference is not
	// validated at decode time; use ActionSet.DanglingLayers once the
	// companion frame count is known.
	SpriteIndex int32
	Mirrored    bool
	Tint        [4]uint8
	ScaleX      float32
	ScaleY      float32
	Rotation    int32
	// SpriteType selects the indexed or true-color frame pool.
	SpriteType int32
	Width      int32
	Height     int32
}

// Anchor is an attachment point linking composed sprites, such as a
// rider to a mount.
type Anchor struct {
	X, Y int32
	Attr int32
}

// Frame is one animation step.
type Frame struct {
	Layers []Layer
	// EventID indexes the event table, NoEvent when unset.
	EventID int32
	Anchors []Anchor
}

// Action is one animation sequence.
type Action struct {
	Frames []Frame
	// Interval is the per-frame delay in milliseconds.
	Interval float32
}

// ActionSet is a decoded action container.
type ActionSet struct {
	Version Version
	Actions []Action
	// Events holds trigger event names referenced by frames.
	Events []string
}

// Decode parses a complete action payload.
func Decode(data []byte) (*ActionSet, error) {
	if len(data) < 4 || string(data[:2]) != magic {
		return nil, ErrNotAction
	}
	v := Version{Minor: data[2], Major: data[3]}
	if v.Major > maxMajor {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
	c := capsFor(v)

	r := wire.NewReader(data)
	r.Skip(4)
	count := int(r.U16())
	r.Skip(headerReserved)
	if err := r.Err(); err != nil {
		return nil, ErrTruncated
	}

	s := &ActionSet{Version: v}
	for i := 0; i < count; i++ {
		a, err := decodeAction(r, c)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		s.Actions = append(s.Actions, a)
	}

	// The trailer blocks are optional on disk even when the revision
	// allows them: files written before the trailer existed end right
	// after the last action. An absent block decodes as defaults; a
	// block that starts and then runs out is still truncated.
	if c.events && r.Remaining() > 0 {
		n := int(r.I32())
		if err := r.Err(); err != nil {
			return nil, ErrTruncated
		}
		for i := 0; i < n; i++ {
			name := r.FixedString(eventNameSize)
			if err := r.Err(); err != nil {
				return nil, fmt.Errorf("event %d: %w", i, ErrTruncated)
			}
			s.Events = append(s.Events, name)
		}
	}

	for i := range s.Actions {
		s.Actions[i].Interval = DefaultInterval
	}
	if c.speeds && r.Remaining() > 0 {
		for i := range s.Actions {
			speed := r.F32()
			if err := r.Err(); err != nil {
				return nil, fmt.Errorf("speed %d: %w", i, ErrTruncated)
			}
			s.Actions[i].Interval = speed * intervalScale
		}
	}
	return s, nil
}

func decodeAction(r *wire.Reader, c caps) (Action, error) {
	n := int(r.I32())
	if err := r.Err(); err != nil || n < 0 {
		return Action{}, ErrTruncated
	}
	a := Action{}
	for i := 0; i < n; i++ {
		f, err := decodeFrame(r, c)
		if err != nil {
			return Action{}, fmt.Errorf("frame %d: %w", i, err)
		}
		a.Frames = append(a.Frames, f)
	}
	return a, nil
}

func decodeFrame(r *wire.Reader, c caps) (Frame, error) {
	r.Skip(frameReserved)
	n := int(r.I32())
	if err := r.Err(); err != nil || n < 0 {
		return Frame{}, ErrTruncated
	}

	f := Frame{EventID: NoEvent}
	for i := 0; i < n; i++ {
		l, err := decodeLayer(r, c)
		if err != nil {
			return Frame{}, fmt.Errorf("layer %d: %w", i, err)
		}
		f.Layers = append(f.Layers, l)
	}

	if c.layerExtras {
		f.EventID = r.I32()
	}
	if c.anchors {
		an := int(r.I32())
		if err := r.Err(); err != nil || an < 0 {
			return Frame{}, ErrTruncated
		}
		for i := 0; i < an; i++ {
			r.Skip(4) // reserved
			f.Anchors = append(f.Anchors, Anchor{X: r.I32(), Y: r.I32(), Attr: r.I32()})
		}
	}
	if err := r.Err(); err != nil {
		return Frame{}, ErrTruncated
	}
	return f, nil
}

func decodeLayer(r *wire.Reader, c caps) (Layer, error) {
	l := Layer{
		X:           r.I32(),
		Y:           r.I32(),
		SpriteIndex: r.I32(),
		Mirrored:    r.I32() != 0,
		ScaleX:      1,
		ScaleY:      1,
	}
	if c.layerExtras {
		copy(l.Tint[:], r.Bytes(4))
		l.ScaleX = r.F32()
		l.ScaleY = l.ScaleX
		if c.scaleY {
			l.ScaleY = r.F32()
		}
		l.Rotation = r.I32()
		l.SpriteType = r.I32()
		if c.dimensions {
			l.Width = r.I32()
			l.Height = r.I32()
		}
	}
	if err := r.Err(); err != nil {
		return Layer{}, ErrTruncated
	}
	return l, nil
}

// LayerRef locates a layer inside an ActionSet.
type LayerRef struct {
	Action      int
	Frame       int
	Layer       int
	SpriteIndex int32
}

// DanglingLayers returns every layer whose sprite reference falls
// outside a companion sprite with frameCount frames. Negative indices
// are empty layers, not dangling references.
func (s *ActionSet) DanglingLayers(frameCount int) []LayerRef {
	var out []LayerRef
	for ai, a := range s.Actions {
		for fi, f := range a.Frames {
			for li, l := range f.Layers {
				if l.SpriteIndex >= int32(frameCount) {
					out = append(out, LayerRef{Action: ai, Frame: fi, Layer: li, SpriteIndex: l.SpriteIndex})
				}
			}
		}
	}
	return out
}
