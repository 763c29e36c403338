package baseline

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/assetharvest/grfkit/fingerprint"
)

// fileFormat is the on-disk envelope around the record set. The
// version field guards against reading files written by an
// incompatible build.
type fileFormat struct {
	FormatVersion int
	CreatedAt     time.Time
	Records       []fingerprint.Record
}

const formatVersion = 1

// ErrBadFormat reports a baseline file this build cannot read.
var ErrBadFormat = errors.New("baseline: unrecognized file format")

// FileStore is a Store backed by a gob-encoded file. Lookups are
// served from memory; Replace rewrites the file through a temp-file
// rename so a crashed run never leaves a half-written baseline.
type FileStore struct {
	path string
	mem  *MemoryStore
}

// OpenFile loads the baseline at path, or starts an empty store if the
// file does not exist yet.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, mem: NewMemoryStore()}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("baseline: open %s: %w", path, err)
	}
	defer f.Close()

	var ff fileFormat
	if err := gob.NewDecoder(f).Decode(&ff); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadFormat, path, err)
	}
	if ff.FormatVersion != formatVersion {
		return nil, fmt.Errorf("%w: %s: version %d", ErrBadFormat, path, ff.FormatVersion)
	}
	if err := s.mem.Replace(ff.Records); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Get(path string) (fingerprint.Record, bool) {
	return s.mem.Get(path)
}

func (s *FileStore) Records() []fingerprint.Record {
	return s.mem.Records()
}

func (s *FileStore) Len() int {
	return s.mem.Len()
}

// Replace updates the in-memory set and persists it.
func (s *FileStore) Replace(records []fingerprint.Record) error {
	if err := s.mem.Replace(records); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("baseline: save %s: %w", s.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".baseline-*")
	if err != nil {
		return fmt.Errorf("baseline: save %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())

	ff := fileFormat{
		FormatVersion: formatVersion,
		CreatedAt:     time.Now().UTC(),
		Records:       s.mem.Records(),
	}
	if err := gob.NewEncoder(tmp).Encode(ff); err != nil {
		tmp.Close()
		return fmt.Errorf("baseline: encode %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("baseline: save %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("baseline: save %s: %w", s.path, err)
	}
	return nil
}

// Path returns the file the store persists to.
func (s *FileStore) Path() string { return s.path }
