package grf

import "errors"

var (
	// ErrNotArchive reports that the payload does not carry the
	// container magic and is some other format entirely.
	ErrNotArchive = errors.New("grf: not an archive")

	// ErrCorrupt reports a structurally broken archive from which no
	// entry could be recovered.
	ErrCorrupt = errors.New("grf: corrupt archive")

	// ErrUnsupportedVersion reports a container version this reader
	// does not understand.
	ErrUnsupportedVersion = errors.New("grf: unsupported version")

	// ErrEntryNotFound reports a lookup for a path the index does not
	// contain.
	ErrEntryNotFound = errors.New("grf: entry not found")

	// ErrEncrypted reports an entry stored with per-entry encryption,
	// which this reader surfaces but does not decode.
	ErrEncrypted = errors.New("grf: entry is encrypted")

	// ErrOutOfBounds reports an entry whose data region lies outside
	// the archive file.
	ErrOutOfBounds = errors.New("grf: entry data out of bounds")

	// ErrClosed reports use of an archive after Close.
	ErrClosed = errors.New("grf: archive is closed")

	// ErrIsDirectory reports a content read against a directory entry.
	ErrIsDirectory = errors.New("grf: entry is a directory")
)
