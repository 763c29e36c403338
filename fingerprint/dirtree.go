package fingerprint

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// DirTree exposes a filesystem directory as a Tree. Member paths are
// relative to the root and normalized, so a directory tree and an
// archive holding the same assets produce comparable records.
type DirTree struct {
	root string
}

func NewDirTree(root string) *DirTree {
	return &DirTree{root: root}
}

// Walk visits every regular file under the root in lexical order.
// Symlinks and other non-regular entries are ignored. Cancellation is
// honored between files.
func (t *DirTree) Walk(ctx context.Context, fn WalkFunc) error {
	return godirwalk.Walk(t.root, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !de.IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(t.root, osPathname)
			if err != nil {
				return err
			}
			open := func() (io.ReadCloser, error) {
				return os.Open(osPathname)
			}
			return fn(NormalizePath(filepath.ToSlash(rel)), open)
		},
		Unsorted: false,
	})
}
