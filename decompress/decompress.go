// Package decompress recovers payloads from game archive entries whose
// compression metadata is unreliable. Entries are frequently mislabeled:
// zlib streams stored without headers, LZSS streams flagged as zlib, and
// raw data flagged as compressed all occur in archives found in the
// wild. The Chain tries the declared method first and then walks the
// remaining strategies until one produces a plausible result.
package decompress

import (
	"errors"
	"log/slog"
)

// Method identifies how an entry claims to be compressed.
type Method uint8

const (
	// MethodNone marks entries stored without compression.
	MethodNone Method = iota
	// MethodZlib marks entries declared as zlib deflate streams.
	MethodZlib
	// MethodLZSS marks entries declared as LZSS streams.
	MethodLZSS
	// MethodUnknown marks entries with no usable declaration. The
	// chain tries every strategy in its fixed order.
	MethodUnknown
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodZlib:
		return "zlib"
	case MethodLZSS:
		return "lzss"
	default:
		return "unknown"
	}
}

// ErrFailed reports that every strategy was exhausted without producing
// an acceptable payload.
var ErrFailed = errors.New("decompress: all strategies failed")

const defaultTolerance = 0.2

// Chain applies decompression strategies in order until one yields a
// payload of acceptable size. A Chain is safe for concurrent use.
type Chain struct {
	tolerance float64
	logger    *slog.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithSizeTolerance sets the fraction by which a decompressed payload
// may deviate from the expected size and still be accepted. Exact
// matches always win; the tolerance only admits results from streams
// that terminated cleanly at a different length. Zero disables the
// window entirely.
func WithSizeTolerance(frac float64) Option {
	return func(c *Chain) {
		if frac >= 0 {
			c.tolerance = frac
		}
	}
}

// WithLogger sets the logger used to report fallback attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) {
		c.logger = logger
	}
}

// NewChain returns a Chain with the default 20% size tolerance.
func NewChain(opts ...Option) *Chain {
	c := &Chain{tolerance: defaultTolerance}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Result describes a successful decompression.
type Result struct {
	Data []byte
	// Method is the strategy that produced the payload. It differs
	// from the declared method when a fallback succeeded.
	Method Method
	// Strategy names the exact variant used, e.g. "zlib+skip2".
	Strategy string
}

type strategy struct {
	name   string
	method Method
	run    func(raw []byte, expected int) ([]byte, error)
}

// Decompress recovers the payload of an entry. declared is the method
// the container metadata claims; expected is the uncompressed size it
// claims. Strategies matching the declared method run first, then the
// rest in a fixed order. The raw slice is never modified.
func (c *Chain) Decompress(declared Method, raw []byte, expected int) (Result, error) {
	if expected < 0 {
		return Result{}, ErrFailed
	}
	if declared == MethodNone && len(raw) == expected {
		out := make([]byte, len(raw))
		copy(out, raw)
		return Result{Data: out, Method: MethodNone, Strategy: "stored"}, nil
	}

	strategies := []strategy{
		{"zlib", MethodZlib, inflateZlib},
		{"deflate-raw", MethodZlib, inflateRaw},
		{"zlib+skip2", MethodZlib, inflateZlibSkip2},
		{"deflate-raw+skip2", MethodZlib, inflateRawSkip2},
		{"lzss", MethodLZSS, decodeLZSS},
	}

	// Declared method first, remaining strategies keep their order.
	ordered := make([]strategy, 0, len(strategies))
	for _, s := range strategies {
		if s.method == declared {
			ordered = append(ordered, s)
		}
	}
	for _, s := range strategies {
		if s.method != declared {
			ordered = append(ordered, s)
		}
	}

	for _, s := range ordered {
		out, err := s.run(raw, expected)
		if err != nil {
			continue
		}
		if !c.accept(len(out), expected) {
			c.log().Debug("strategy output rejected",
				"strategy", s.name,
				"got", len(out),
				"expected", expected)
			continue
		}
		if s.name != ordered[0].name {
			c.log().Debug("fallback strategy succeeded",
				"declared", declared.String(),
				"strategy", s.name)
		}
		return Result{Data: out, Method: s.method, Strategy: s.name}, nil
	}

	// Last resort: the entry may be stored raw despite its metadata.
	if c.accept(len(raw), expected) {
		out := make([]byte, len(raw))
		copy(out, raw)
		c.log().Debug("treating entry as stored", "size", len(raw), "expected", expected)
		return Result{Data: out, Method: MethodNone, Strategy: "stored"}, nil
	}

	return Result{}, ErrFailed
}

func (c *Chain) accept(got, expected int) bool {
	if got == expected {
		return true
	}
	if expected == 0 || got == 0 {
		return false
	}
	ratio := float64(got) / float64(expected)
	return ratio >= 1-c.tolerance && ratio <= 1+c.tolerance
}
