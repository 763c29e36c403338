package decompress

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// zlibReaders recycles inflate state across entries. Archive audits
// decompress tens of thousands of small payloads, and allocating a
// fresh reader per attempt dominates the profile.
var zlibReaders = sync.Pool{}

// readCapped drains r into a buffer sized for the expected payload,
// cutting off well past any acceptable length so a corrupt stream
// cannot balloon memory. A truncated stream is still returned: the
// bytes produced before the cut are a valid prefix and the chain's
// size check decides whether they are usable.
func readCapped(r io.Reader, expected int) ([]byte, error) {
	cap64 := int64(expected)*2 + 1024
	buf := bytes.NewBuffer(make([]byte, 0, expected))
	_, err := io.Copy(buf, io.LimitReader(r, cap64))
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflateZlib(raw []byte, expected int) ([]byte, error) {
	br := bytes.NewReader(raw)

	if v := zlibReaders.Get(); v != nil {
		zr := v.(io.ReadCloser)
		if err := zr.(zlib.Resetter).Reset(br, nil); err != nil {
			zlibReaders.Put(zr)
			return nil, err
		}
		out, err := readCapped(zr, expected)
		zlibReaders.Put(zr)
		return out, err
	}

	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, err
	}
	out, err := readCapped(zr, expected)
	zlibReaders.Put(zr)
	return out, err
}

func inflateRaw(raw []byte, expected int) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()
	return readCapped(fr, expected)
}

func inflateZlibSkip2(raw []byte, expected int) ([]byte, error) {
	if len(raw) < 2 {
		return nil, io.ErrUnexpectedEOF
	}
	return inflateZlib(raw[2:], expected)
}

func inflateRawSkip2(raw []byte, expected int) ([]byte, error) {
	if len(raw) < 2 {
		return nil, io.ErrUnexpectedEOF
	}
	return inflateRaw(raw[2:], expected)
}
