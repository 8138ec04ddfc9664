// Package tree models the file-level output of one architecture-specific
// build.
//
// A [Tree] is an ordered mapping from relative path to file content, with a
// per-file kind classifying it as a library artifact, reference-bearing text,
// or opaque data. Trees are captured from a build root on disk with
// [Snapshot], written back with [Tree.WriteTo], and deep-copied with
// [Tree.Clone] so that a merge can mutate its own working copy without
// touching the original.
//
// A [Build] couples a tree with the absolute root it was captured from and
// the architecture it was built for. The root matters beyond provenance:
// reference-bearing files inside the tree may embed the root as a literal
// path, which the assembler rewrites when trees are superimposed.
//
// Example usage:
//
//	t, err := tree.Snapshot("/tmp/build-arm64")
//	if err != nil {
//	    return err
//	}
//
//	b := &tree.Build{Root: "/tmp/build-arm64", Arch: "arm64", Tree: t}
package tree
