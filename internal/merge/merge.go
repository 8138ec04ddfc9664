package merge

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/forgeline/unibuild/internal/tree"
)

// Combines two single-architecture binaries of the same relative path into
// one multi-architecture binary.
//
// This is the external binary-merge primitive. Implementations fail when the
// two inputs have incompatible formats.
type Combiner interface {
	Combine(ctx context.Context, a, b []byte) ([]byte, error)
}

// One architecture-specific build handed to the assembler.
type Input struct {
	Root string     // Absolute root the tree was captured from.
	Arch string     // Architecture the tree was built for.
	Tree *tree.Tree // Captured build output.
}

// Emitted when a library artifact is present in some but not all input
// trees. The merge proceeds; the single-architecture copy is retained.
type Warning struct {
	Path string // Relative path of the artifact.
	Arch string // Architecture whose tree is missing the artifact.
}

// The outcome of assembling a set of per-architecture builds.
type Result struct {
	Tree     *tree.Tree          // Working tree after superimposition.
	Root     string              // Primary root; all rewritten references point here.
	Arches   map[string][]string // Architecture set per library artifact, sorted.
	Warnings []Warning           // Partial-coverage warnings, in path order.
}

// Merges two or more per-architecture build trees into one universal tree.
//
// The first input is the primary: the working tree starts as a full copy of
// it and non-artifact conflicts resolve in its favor. For each remaining
// input, reference-bearing files in the working tree are rewritten from the
// input's root to the primary root, then library artifacts shared with the
// input are combined into fat binaries. Artifacts unique to one side are
// retained unmodified and flagged.
func Assemble(ctx context.Context, combiner Combiner, inputs []Input) (*Result, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("%w: need at least two builds, got %d", ErrInput, len(inputs))
	}

	primary := inputs[0]
	result := &Result{
		Tree:   primary.Tree.Clone(),
		Root:   primary.Root,
		Arches: make(map[string][]string),
	}
	for _, p := range primary.Tree.PathsOf(tree.KindArtifact) {
		result.Arches[p] = []string{primary.Arch}
	}

	for _, other := range inputs[1:] {
		if err := result.superimpose(ctx, combiner, primary, other); err != nil {
			return nil, err
		}
	}

	slices.SortFunc(result.Warnings, func(a, b Warning) int {
		if a.Path != b.Path {
			if a.Path < b.Path {
				return -1
			}
			return 1
		}
		return 0
	})

	return result, nil
}

// Superimposes one non-primary build onto the working tree.
func (r *Result) superimpose(ctx context.Context, combiner Combiner, primary Input, other Input) error {
	r.rewriteReferences(other.Root, primary.Root)
	return r.combineArtifacts(ctx, combiner, primary, other)
}

// Rewrites every reference to oldRoot in the working tree's text files.
//
// The scan covers all reference-bearing files, not just build-system
// metadata; a single file may contain many occurrences. Files with no
// remaining occurrences are left untouched, which makes the pass idempotent.
func (r *Result) rewriteReferences(oldRoot, newRoot string) {
	if oldRoot == newRoot {
		return
	}

	total := 0
	for _, p := range r.Tree.PathsOf(tree.KindText) {
		f, _ := r.Tree.File(p)
		data, n := Rewrite(f.Data, oldRoot, newRoot)
		if n == 0 {
			continue
		}
		f.Data = data
		total += n
		slog.Debug("rewrote path references", "file", p, "count", n)
	}

	slog.Info("path references rewritten", "old", oldRoot, "new", newRoot, "count", total)
}

// Combines library artifacts shared between the working tree and the other
// build, and records warnings for artifacts unique to either side.
//
// Artifacts present only in the other build are carried into the working
// tree with their single architecture so that no build output is dropped.
func (r *Result) combineArtifacts(ctx context.Context, combiner Combiner, primary Input, other Input) error {
	otherArtifacts := other.Tree.PathsOf(tree.KindArtifact)
	otherSet := make(map[string]bool, len(otherArtifacts))
	for _, p := range otherArtifacts {
		otherSet[p] = true
	}

	for _, p := range r.Tree.PathsOf(tree.KindArtifact) {
		working, _ := r.Tree.File(p)

		if !otherSet[p] {
			r.Warnings = append(r.Warnings, Warning{Path: p, Arch: other.Arch})
			continue
		}

		theirs, _ := other.Tree.File(p)
		fat, err := combiner.Combine(ctx, working.Data, theirs.Data)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMergeTool, p, err)
		}

		working.Data = fat
		r.Arches[p] = unionArch(r.Arches[p], other.Arch)
	}

	for _, p := range otherArtifacts {
		if _, ok := r.Tree.File(p); ok {
			continue
		}
		f, _ := other.Tree.File(p)
		r.Tree.Add(p, &tree.File{Data: slices.Clone(f.Data), Mode: f.Mode, Kind: f.Kind})
		r.Arches[p] = []string{other.Arch}
		r.Warnings = append(r.Warnings, Warning{Path: p, Arch: primary.Arch})
	}

	return nil
}

// Adds an architecture to a sorted set, ignoring duplicates.
func unionArch(set []string, arch string) []string {
	i, found := slices.BinarySearch(set, arch)
	if found {
		return set
	}
	return slices.Insert(set, i, arch)
}
