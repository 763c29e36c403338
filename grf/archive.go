package grf

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/tidwall/btree"

	"github.com/assetharvest/grfkit/decompress"
	"github.com/assetharvest/grfkit/fingerprint"
	"github.com/assetharvest/grfkit/internal/wire"
)

// Archive is an open container. The entry table is parsed eagerly at
// Open; entry contents are read lazily on demand. An Archive is safe
// for concurrent reads.
type Archive struct {
	path     string
	fileSize int64
	hdr      header

	// entries holds every recovered record in table order. index keys
	// entries by normalized path; on duplicate paths the later record
	// wins, matching patch-over-base container semantics.
	entries []*Entry
	index   *btree.BTreeG[*Entry]

	warnings []string

	chain  *decompress.Chain
	logger *slog.Logger

	mu     sync.RWMutex
	f      *os.File
	closed bool
}

// Option configures an Archive at Open.
type Option func(*Archive)

// WithLogger sets the logger used for recovery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) { a.logger = logger }
}

// WithDecompressor replaces the default fallback chain used for entry
// content reads.
func WithDecompressor(chain *decompress.Chain) Option {
	return func(a *Archive) { a.chain = chain }
}

// Open reads the container header and entry table from path.
//
// A missing magic returns ErrNotArchive. A damaged table aborts with
// ErrCorrupt only when no entry at all could be recovered; otherwise
// Open succeeds with a partial index and records the problem in
// Warnings.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grf: open %s: %w", path, err)
	}

	a := &Archive{
		path:  path,
		f:     f,
		index: btree.NewBTreeG(func(a, b *Entry) bool { return a.Path < b.Path }),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.chain == nil {
		a.chain = decompress.NewChain(decompress.WithLogger(a.logger))
	}

	if err := a.load(); err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.New(slog.DiscardHandler)
}

func (a *Archive) load() error {
	info, err := a.f.Stat()
	if err != nil {
		return fmt.Errorf("grf: stat %s: %w", a.path, err)
	}
	a.fileSize = info.Size()

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(io.NewSectionReader(a.f, 0, headerSize), buf); err != nil {
		return ErrNotArchive
	}
	h, err := parseHeader(buf)
	if err != nil {
		return err
	}
	if h.version != versionSupported {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, h.version)
	}
	a.hdr = h

	table, err := a.readTable()
	if err != nil {
		return err
	}
	a.parseTable(table)

	if len(a.entries) == 0 && h.entryCount() > 0 {
		return fmt.Errorf("%w: no entries recovered from table", ErrCorrupt)
	}
	if got := len(a.entries); got != h.entryCount() {
		a.warn("entry count mismatch: header declares %d, table yielded %d", h.entryCount(), got)
	}
	return nil
}

// readTable loads and inflates the entry table at the tail of the
// container. The table region is two u32 sizes followed by a plain
// zlib stream; unlike entry payloads it never uses the fallback chain.
func (a *Archive) readTable() ([]byte, error) {
	pos := int64(headerSize) + int64(a.hdr.tableOffset)
	if pos+8 > a.fileSize {
		return nil, fmt.Errorf("%w: table offset %d beyond file size %d", ErrCorrupt, pos, a.fileSize)
	}

	sizes := make([]byte, 8)
	if _, err := io.ReadFull(io.NewSectionReader(a.f, pos, 8), sizes); err != nil {
		return nil, fmt.Errorf("%w: table sizes unreadable", ErrCorrupt)
	}
	r := wire.NewReader(sizes)
	compSize := int64(r.U32())
	realSize := int64(r.U32())

	if pos+8+compSize > a.fileSize {
		return nil, fmt.Errorf("%w: table extends beyond file", ErrCorrupt)
	}

	comp := make([]byte, compSize)
	if _, err := io.ReadFull(io.NewSectionReader(a.f, pos+8, compSize), comp); err != nil {
		return nil, fmt.Errorf("%w: table data unreadable", ErrCorrupt)
	}

	zr, err := zlib.NewReader(bytes.NewReader(comp))
	if err != nil {
		return nil, fmt.Errorf("%w: table inflate: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	table, err := io.ReadAll(io.LimitReader(zr, realSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: table inflate: %v", ErrCorrupt, err)
	}
	if int64(len(table)) != realSize {
		a.warn("table size mismatch: declared %d, inflated %d", realSize, len(table))
	}
	return table, nil
}

// parseTable walks records until the buffer ends or a record is
// unreadable. Everything recovered before the first bad record stays
// in the index.
func (a *Archive) parseTable(table []byte) {
	r := wire.NewReader(table)
	for r.Remaining() > 0 {
		e, err := parseEntry(r)
		if err != nil {
			a.warn("entry table truncated after %d records", len(a.entries))
			a.log().Warn("stopping table parse on unreadable record",
				"archive", a.path,
				"recovered", len(a.entries))
			return
		}
		a.entries = append(a.entries, e)
		if e.Path != "" {
			a.index.Set(e)
		}
	}
}

func (a *Archive) warn(format string, args ...any) {
	a.warnings = append(a.warnings, fmt.Sprintf(format, args...))
}

// Path returns the filesystem path the archive was opened from.
func (a *Archive) Path() string { return a.path }

// Version returns the container format revision.
func (a *Archive) Version() uint32 { return a.hdr.version }

// DeclaredCount returns the entry count the header claims. It can
// disagree with Len on damaged archives.
func (a *Archive) DeclaredCount() int { return a.hdr.entryCount() }

// Len returns the number of entries actually recovered.
func (a *Archive) Len() int { return len(a.entries) }

// Warnings returns recovery notes collected at Open, in order.
func (a *Archive) Warnings() []string {
	out := make([]string, len(a.warnings))
	copy(out, a.warnings)
	return out
}

// Lookup finds an entry by path. The argument is normalized before the
// lookup, so any spelling of the same logical path matches.
func (a *Archive) Lookup(path string) (*Entry, bool) {
	return a.index.Get(&Entry{Path: fingerprint.NormalizePath(path)})
}

// Entries iterates over recovered entries in table order.
func (a *Archive) Entries() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, e := range a.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// EntriesWithPrefix iterates, in path order, over entries whose
// normalized path starts with prefix.
func (a *Archive) EntriesWithPrefix(prefix string) iter.Seq[*Entry] {
	prefix = fingerprint.NormalizePath(prefix)
	return func(yield func(*Entry) bool) {
		a.index.Ascend(&Entry{Path: prefix}, func(e *Entry) bool {
			if !strings.HasPrefix(e.Path, prefix) {
				return false
			}
			return yield(e)
		})
	}
}

// ReadFile reads and decompresses the content of the entry at path.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	e, ok := a.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
	}
	return a.ReadEntry(e)
}

// ReadEntry reads and decompresses the content of e. The declared
// compression method is tried first; on mismatch the fallback chain
// runs the remaining strategies before giving up.
func (a *Archive) ReadEntry(e *Entry) ([]byte, error) {
	if e.Type == EntryDirectory {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, e.Path)
	}
	if e.Encrypted() {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, e.Path)
	}

	span := int64(e.AlignedSize)
	if span < int64(e.CompressedSize) {
		span = int64(e.CompressedSize)
	}
	pos := int64(headerSize) + int64(e.Offset)
	if pos < headerSize || pos+span > a.fileSize {
		return nil, fmt.Errorf("%w: %s at offset %d size %d", ErrOutOfBounds, e.Path, pos, span)
	}

	raw := make([]byte, span)
	if err := a.readAt(raw, pos); err != nil {
		return nil, err
	}
	// Encrypted entries pad to block size; plain entries may still
	// declare an aligned span, so only the compressed span feeds the
	// decompressor.
	if int64(e.CompressedSize) > 0 && int64(e.CompressedSize) < span {
		raw = raw[:e.CompressedSize]
	}

	res, err := a.chain.Decompress(e.Method(), raw, int(e.Size))
	if err != nil {
		return nil, fmt.Errorf("grf: %s: %w", e.Path, err)
	}
	if res.Method != e.Method() {
		a.log().Debug("entry compression mislabeled",
			"path", e.Path,
			"declared", e.Method().String(),
			"actual", res.Strategy)
	}
	return res.Data, nil
}

func (a *Archive) readAt(buf []byte, pos int64) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	if _, err := a.f.ReadAt(buf, pos); err != nil {
		return fmt.Errorf("grf: read %s: %w", a.path, err)
	}
	return nil
}

// Close releases the underlying file. Close is idempotent; reads after
// Close return ErrClosed.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.f.Close()
}
