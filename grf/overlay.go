package grf

import (
	"errors"
	"fmt"
	"sort"

	"github.com/assetharvest/grfkit/fingerprint"
)

// Overlay layers several archives into one logical asset tree. The
// game client resolves assets the same way: a patch archive shadows
// the base archive for any path both contain. Later pushed archives
// have higher priority.
type Overlay struct {
	layers []*Archive
}

func NewOverlay(archives ...*Archive) *Overlay {
	o := &Overlay{}
	for _, a := range archives {
		o.Push(a)
	}
	return o
}

// Push adds an archive above every archive already in the overlay.
func (o *Overlay) Push(a *Archive) {
	o.layers = append(o.layers, a)
}

// Layers returns the archives from lowest to highest priority.
func (o *Overlay) Layers() []*Archive {
	out := make([]*Archive, len(o.layers))
	copy(out, o.layers)
	return out
}

// Lookup resolves path against the overlay, highest priority first,
// and reports which archive won.
func (o *Overlay) Lookup(path string) (*Entry, *Archive, bool) {
	for i := len(o.layers) - 1; i >= 0; i-- {
		if e, ok := o.layers[i].Lookup(path); ok {
			return e, o.layers[i], true
		}
	}
	return nil, nil, false
}

// ReadFile reads the content of path from the highest priority archive
// that contains it.
func (o *Overlay) ReadFile(path string) ([]byte, error) {
	e, a, ok := o.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
	}
	return a.ReadEntry(e)
}

// Paths returns the union of file entry paths across all layers,
// sorted. Shadowed duplicates appear once.
func (o *Overlay) Paths() []string {
	seen := make(map[string]struct{})
	for _, a := range o.layers {
		for e := range a.Entries() {
			if e.Type != EntryFile {
				continue
			}
			seen[e.Path] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Tree returns a fingerprint view of the merged overlay, resolving
// each path through the layer priority.
func (o *Overlay) Tree() fingerprint.Tree {
	return overlayTree{o: o}
}

// Close closes every layer, returning the first error.
func (o *Overlay) Close() error {
	var errs []error
	for _, a := range o.layers {
		errs = append(errs, a.Close())
	}
	return errors.Join(errs...)
}
