package grf

import (
	"context"

	"github.com/assetharvest/grfkit/fingerprint"
)

type overlayTree struct {
	o *Overlay
}

func (t overlayTree) Walk(ctx context.Context, fn fingerprint.WalkFunc) error {
	for _, path := range t.o.Paths() {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, a, ok := t.o.Lookup(path)
		if !ok {
			continue
		}
		if err := fn(path, entryOpener(a, e)); err != nil {
			return err
		}
	}
	return nil
}
