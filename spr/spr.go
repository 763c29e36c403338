// Package spr decodes the client sprite container: a set of indexed
// and true-color frames plus a shared palette. Frame pixel data is
// normalized on decode, so consumers always see top-down RGBA or
// palette indices regardless of how the revision stores them.
package spr

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/assetharvest/grfkit/internal/wire"
)

var (
	// ErrNotSprite reports a payload without the sprite magic.
	ErrNotSprite = errors.New("spr: not a sprite")

	// ErrUnsupportedVersion reports a revision this decoder does not
	// understand.
	ErrUnsupportedVersion = errors.New("spr: unsupported version")

	// ErrTruncated reports frame counts or payload sizes that extend
	// past the end of the data.
	ErrTruncated = errors.New("spr: truncated data")

	// ErrInvalidFrame reports frame data that contradicts its own
	// header, such as a run-length stream overflowing the frame.
	ErrInvalidFrame = errors.New("spr: invalid frame data")
)

const (
	magic       = "SP"
	paletteSize = 1024
	maxMajor    = 2
)

// Version is a sprite container revision. Stored on disk as minor
// then major byte.
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v is at or past the given revision.
func (v Version) AtLeast(major, minor uint8) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// FrameType distinguishes palette-indexed frames from true-color
// frames.
type FrameType uint8

const (
	FrameIndexed FrameType = iota
	FrameRGBA
)

func (t FrameType) String() string {
	if t == FrameRGBA {
		return "rgba"
	}
	return "indexed"
}

// Frame is one decoded image. Indexed frames hold one palette index
// per pixel; RGBA frames hold four bytes per pixel in red, green,
// blue, alpha order with rows top to bottom.
type Frame struct {
	Type   FrameType
	Width  int
	Height int
	Pixels []byte
}

// Palette is the shared 256-color table, stored as 256 RGBA
// quadruplets.
type Palette []byte

// Color returns palette entry i. Index zero is the transparency key
// and is returned fully transparent.
func (p Palette) Color(i int) color.RGBA {
	if i < 0 || (i+1)*4 > len(p) {
		return color.RGBA{}
	}
	if i == 0 {
		return color.RGBA{}
	}
	return color.RGBA{R: p[i*4], G: p[i*4+1], B: p[i*4+2], A: 0xFF}
}

// Sprite is a decoded sprite container.
type Sprite struct {
	Version Version
	// Frames holds indexed frames first, then RGBA frames, in disk
	// order.
	Frames       []Frame
	IndexedCount int
	RGBACount    int
	// Palette is nil when the payload carries no palette block.
	Palette Palette
}

// Decode parses a complete sprite payload. Frame dimensions come only
// from frame headers; a sprite with zero frames is valid.
func Decode(data []byte) (*Sprite, error) {
	if len(data) < 4 || string(data[:2]) != magic {
		return nil, ErrNotSprite
	}
	v := Version{Minor: data[2], Major: data[3]}
	if v.Major > maxMajor {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}

	r := wire.NewReader(data)
	r.Skip(4)

	s := &Sprite{Version: v}
	s.IndexedCount = int(r.U16())
	if v.AtLeast(2, 0) {
		s.RGBACount = int(r.U16())
	}
	if err := r.Err(); err != nil {
		return nil, ErrTruncated
	}

	useRLE := v.AtLeast(2, 1)
	for i := 0; i < s.IndexedCount; i++ {
		f, err := decodeIndexed(r, useRLE)
		if err != nil {
			return nil, fmt.Errorf("indexed frame %d: %w", i, err)
		}
		s.Frames = append(s.Frames, f)
	}
	for i := 0; i < s.RGBACount; i++ {
		f, err := decodeRGBA(r)
		if err != nil {
			return nil, fmt.Errorf("rgba frame %d: %w", i, err)
		}
		s.Frames = append(s.Frames, f)
	}

	// The palette is the final kilobyte after the frame data. Some
	// payloads omit it entirely.
	if rem := r.Remaining(); rem >= paletteSize {
		r.Skip(rem - paletteSize)
		s.Palette = Palette(append([]byte(nil), r.Bytes(paletteSize)...))
	}
	return s, nil
}

func decodeIndexed(r *wire.Reader, useRLE bool) (Frame, error) {
	w := int(r.U16())
	h := int(r.U16())
	if err := r.Err(); err != nil {
		return Frame{}, ErrTruncated
	}

	f := Frame{Type: FrameIndexed, Width: w, Height: h}
	if !useRLE {
		px := r.Bytes(w * h)
		if r.Err() != nil {
			return Frame{}, ErrTruncated
		}
		f.Pixels = append([]byte(nil), px...)
		return f, nil
	}

	size := int(r.U16())
	stream := r.Bytes(size)
	if r.Err() != nil {
		return Frame{}, ErrTruncated
	}
	px, err := decodeRLE(stream, w*h)
	if err != nil {
		return Frame{}, err
	}
	f.Pixels = px
	return f, nil
}

// decodeRLE expands a zero-run-length stream into exactly want bytes.
// A zero byte is followed by a run count of transparent pixels; any
// other byte is a literal palette index.
func decodeRLE(stream []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	for i := 0; i < len(stream); i++ {
		b := stream[i]
		if b != 0 {
			out = append(out, b)
			continue
		}
		i++
		if i >= len(stream) {
			return nil, fmt.Errorf("%w: run count missing", ErrInvalidFrame)
		}
		n := int(stream[i])
		if len(out)+n > want {
			return nil, fmt.Errorf("%w: run overflows frame", ErrInvalidFrame)
		}
		out = append(out, make([]byte, n)...)
	}
	if len(out) != want {
		return nil, fmt.Errorf("%w: stream yields %d of %d pixels", ErrInvalidFrame, len(out), want)
	}
	return out, nil
}

func decodeRGBA(r *wire.Reader) (Frame, error) {
	w := int(r.U16())
	h := int(r.U16())
	src := r.Bytes(4 * w * h)
	if r.Err() != nil {
		return Frame{}, ErrTruncated
	}

	// On disk pixels are alpha, blue, green, red with rows bottom to
	// top. Normalize to top-down RGBA.
	out := make([]byte, len(src))
	stride := 4 * w
	for y := 0; y < h; y++ {
		srcRow := src[(h-1-y)*stride : (h-y)*stride]
		dstRow := out[y*stride : (y+1)*stride]
		for x := 0; x < w; x++ {
			s := srcRow[x*4 : x*4+4]
			d := dstRow[x*4 : x*4+4]
			d[0], d[1], d[2], d[3] = s[3], s[2], s[1], s[0]
		}
	}
	return Frame{Type: FrameRGBA, Width: w, Height: h, Pixels: out}, nil
}
