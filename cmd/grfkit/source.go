package main

import (
	"fmt"
	"os"

	"github.com/assetharvest/grfkit/fingerprint"
	"github.com/assetharvest/grfkit/grf"
)

// openTree resolves command arguments into a fingerprint tree. A
// single directory argument becomes a directory walk; archive
// arguments become an overlay where later archives shadow earlier
// ones, matching the client's patch order.
func openTree(paths []string) (fingerprint.Tree, func() error, error) {
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no input paths given")
	}

	info, err := os.Stat(paths[0])
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		if len(paths) > 1 {
			return nil, nil, fmt.Errorf("a directory tree takes exactly one path")
		}
		return fingerprint.NewDirTree(paths[0]), func() error { return nil }, nil
	}

	overlay := grf.NewOverlay()
	for _, p := range paths {
		a, err := grf.Open(p, grf.WithLogger(libLogger()))
		if err != nil {
			overlay.Close()
			return nil, nil, fmt.Errorf("open %s: %w", p, err)
		}
		for _, w := range a.Warnings() {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", p, w)
		}
		overlay.Push(a)
	}
	return overlay.Tree(), overlay.Close, nil
}
