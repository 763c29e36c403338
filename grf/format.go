// Package grf reads the archive containers used by the game client to
// ship assets. A container is a binary header, a data region, and a
// compressed entry table at the tail. Real-world archives are often
// damaged or carry misdeclared compression metadata, so the reader
// favors partial recovery over strictness: a broken table record stops
// table parsing with a warning, and entry payloads run through a
// decompression fallback chain.
package grf

import (
	"github.com/assetharvest/grfkit/decompress"
	"github.com/assetharvest/grfkit/fingerprint"
	"github.com/assetharvest/grfkit/internal/wire"
)

const (
	// magic is the 15-byte signature at the start of every container.
	magic = "Master of Magic"

	// headerSize covers the magic, the 15-byte key block, and the
	// four trailing u32 fields.
	headerSize = 46

	// versionSupported is the only container revision this reader
	// understands.
	versionSupported = 0x200

	// countBias is subtracted (together with the seed) from the raw
	// count field to obtain the real entry count.
	countBias = 7
)

const (
	flagFile     = 0x01
	flagMixCrypt = 0x02
	flagDES      = 0x04
)

type header struct {
	key         [15]byte
	tableOffset uint32
	seed        uint32
	rawCount    uint32
	version     uint32
}

// entryCount returns the real number of entries declared by the header.
func (h header) entryCount() int {
	n := int64(h.rawCount) - int64(h.seed) - countBias
	if n < 0 {
		return 0
	}
	return int(n)
}

func parseHeader(buf []byte) (header, error) {
	if len(buf) < headerSize || string(buf[:len(magic)]) != magic {
		return header{}, ErrNotArchive
	}
	r := wire.NewReader(buf[len(magic):])
	var h header
	copy(h.key[:], r.Bytes(15))
	h.tableOffset = r.U32()
	h.seed = r.U32()
	h.rawCount = r.U32()
	h.version = r.U32()
	if err := r.Err(); err != nil {
		return header{}, ErrNotArchive
	}
	return h, nil
}

// EntryType distinguishes file entries from directory placeholders.
type EntryType uint8

const (
	EntryFile EntryType = iota
	EntryDirectory
)

func (t EntryType) String() string {
	if t == EntryDirectory {
		return "directory"
	}
	return "file"
}

// Entry describes one record in the container table. Sizes and offsets
// come straight from the table; the data region is not touched until a
// content read.
type Entry struct {
	// Path is the normalized entry path: lowercase, forward slashes,
	// no leading slash.
	Path string

	// RawPath is the path exactly as stored in the table.
	RawPath string

	CompressedSize uint32
	// AlignedSize is the on-disk span of the entry data, padded for
	// encrypted entries.
	AlignedSize uint32
	// Size is the declared uncompressed size.
	Size uint32
	// Offset is relative to the end of the header.
	Offset uint32

	Flags uint8
	Type  EntryType
}

// Encrypted reports whether the entry data is stored with per-entry
// encryption. Encrypted entries are listed but cannot be read.
func (e *Entry) Encrypted() bool {
	return e.Flags&(flagMixCrypt|flagDES) != 0
}

// Method returns the compression method the table metadata declares.
// The declaration is a hint: content reads fall back to other methods
// when it turns out to be wrong.
func (e *Entry) Method() decompress.Method {
	if e.Type == EntryDirectory {
		return decompress.MethodNone
	}
	if e.CompressedSize == e.Size {
		return decompress.MethodNone
	}
	return decompress.MethodZlib
}

// parseEntry reads one table record. Records are a NUL-terminated
// path followed by three u32 sizes, a flag byte, and a u32 offset.
func parseEntry(r *wire.Reader) (*Entry, error) {
	raw := r.CString()
	e := &Entry{RawPath: raw}
	e.CompressedSize = r.U32()
	e.AlignedSize = r.U32()
	e.Size = r.U32()
	e.Flags = r.U8()
	e.Offset = r.U32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	// Lookups and baseline comparison must agree on one path form, so
	// the table path goes through the same normalization the
	// fingerprint engine applies.
	e.Path = fingerprint.NormalizePath(raw)
	if e.Flags&flagFile == 0 {
		e.Type = EntryDirectory
	}
	return e, nil
}
