package grf

import (
	"bytes"
	"context"
	"io"

	"github.com/assetharvest/grfkit/fingerprint"
)

// archiveTree adapts an Archive to the fingerprint walk so archives
// can be baselined and compared without extracting them first.
type archiveTree struct {
	a *Archive
}

// Tree returns a fingerprint view of the archive. Directory entries
// are not visited. Encrypted entries are visited but open as skipped,
// so audits report them instead of losing them.
func (a *Archive) Tree() fingerprint.Tree {
	return archiveTree{a: a}
}

func (t archiveTree) Walk(ctx context.Context, fn fingerprint.WalkFunc) error {
	for e := range t.a.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.Type == EntryDirectory {
			continue
		}
		if err := fn(e.Path, entryOpener(t.a, e)); err != nil {
			return err
		}
	}
	return nil
}

// entryOpener builds the fingerprint opener for one archive entry.
// Encrypted entries cannot be hashed; their opener reports a skip.
func entryOpener(a *Archive, e *Entry) fingerprint.Opener {
	if e.Encrypted() {
		return func() (io.ReadCloser, error) {
			return nil, fingerprint.SkipEntry("encrypted")
		}
	}
	return func() (io.ReadCloser, error) {
		data, err := a.ReadEntry(e)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}
