// Package merge assembles universal build trees from per-architecture builds.
//
// The assembler takes two or more build trees produced from the same source
// for the same platform and configuration, each tagged with its root path
// and architecture, and superimposes them onto a working copy of the first
// (primary) tree. Reference-bearing text files are scanned for literal
// occurrences of non-primary root paths, which are rewritten to the primary
// root. Library artifacts present in multiple trees are combined into fat
// binaries by an external [Combiner]; artifacts present in only one tree are
// kept as-is and reported as partial-coverage warnings.
//
// Rewriting is idempotent: once no occurrences of a non-primary root remain,
// re-running the rewrite leaves the tree unchanged.
//
// Example usage:
//
//	result, err := merge.Assemble(ctx, merge.NewLipo(""), []merge.Input{
//	    {Root: "/tmp/build-arm64", Arch: "arm64", Tree: armTree},
//	    {Root: "/tmp/build-x86_64", Arch: "x86_64", Tree: x86Tree},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, w := range result.Warnings {
//	    slog.Warn("partial architecture coverage", "path", w.Path, "arch", w.Arch)
//	}
package merge
