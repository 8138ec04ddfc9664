package pack

import (
	"context"

	"github.com/forgeline/unibuild/internal/tree"
)

// Packages language-binding files from completed single-architecture trees.
//
// Bindings are architecture-independent (generated headers, interface
// definitions, wrapper sources), so one archive per platform from the first
// completed architecture suffices. The output name uses "bindings" in place
// of the build configuration.
type BindingArchiver struct {
	Dir         string   // Output directory, created on first use.
	Prefix      string   // Archive name prefix.
	Manifest    []string // Glob patterns selecting the binding files.
	Compression string   // Archive codec. Empty selects zstd.
}

// Archives the binding files of one platform's build tree.
func (b *BindingArchiver) Package(ctx context.Context, platform string, build *tree.Build) error {
	a := &Archiver{
		Dir:         b.Dir,
		Prefix:      b.Prefix,
		Manifest:    b.Manifest,
		Compression: b.Compression,
	}
	_, err := a.Archive(ctx, build.Tree, platform, "bindings")
	return err
}
