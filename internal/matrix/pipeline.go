package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/forgeline/unibuild/internal/merge"
	"github.com/forgeline/unibuild/internal/pack"
	"github.com/forgeline/unibuild/internal/tree"
)

// Identifies one architecture-specific build request to the toolchain.
type BuildSpec struct {
	Platform string // Target platform.
	Arch     string // Target architecture.
	Config   string // Build configuration.
	DepRoot  string // Dependency root produced by the bootstrap step.
}

// The external toolchain invocation.
//
// Implementations run one architecture-specific build and capture the
// resulting tree together with its root path. A non-zero toolchain exit is
// returned as an error wrapping [ErrToolchain].
type Toolchain interface {
	Build(ctx context.Context, spec BuildSpec) (*tree.Build, error)
}

// The external dependency bootstrap.
//
// Produces a dependency root path usable by the toolchain for the given
// platform and architecture.
type Bootstrap interface {
	Prepare(ctx context.Context, platform, arch string) (string, error)
}

// The external archive writer.
//
// Consumes a finished tree and produces one archive named deterministically
// from (platform, configuration).
type Archiver interface {
	Archive(ctx context.Context, t *tree.Tree, platform, config string) (*pack.Archive, error)
}

// The external language-binding packager. Independent of assembly: it
// consumes one completed single-architecture tree per platform.
type BindingPackager interface {
	Package(ctx context.Context, platform string, build *tree.Build) error
}

// Configures one workflow run.
type Options struct {
	Workflow string
	Ref      string
	Cells    []Cell

	Toolchain Toolchain
	Bootstrap Bootstrap
	Combiner  merge.Combiner
	Archiver  Archiver
	Bindings  BindingPackager // Optional.
}

// The terminal outcome of one matrix cell.
type CellResult struct {
	Cell     Cell
	Key      Key
	State    State
	Err      error               // Cause when State is Failed.
	Archive  *pack.Archive       // Produced archive, nil unless Succeeded.
	Arches   map[string][]string // Architecture set per artifact after assembly.
	Warnings []merge.Warning     // Partial-coverage warnings from assembly.
}

// Runs every cell of the workflow matrix in parallel.
//
// Cells are independent: no failure in one aborts a sibling, and each owns
// its build trees exclusively until handoff. The returned report carries one
// terminal result per cell; the error return is reserved for submission
// problems, not build failures.
func Run(ctx context.Context, sched *Scheduler, opts Options) (*Report, error) {
	if opts.Toolchain == nil || opts.Bootstrap == nil || opts.Archiver == nil {
		return nil, errors.New("matrix: toolchain, bootstrap, and archiver are required")
	}

	results := make([]CellResult, len(opts.Cells))

	g, gctx := errgroup.WithContext(ctx)
	for i, cell := range opts.Cells {
		key := Key{
			Workflow: opts.Workflow,
			Ref:      opts.Ref,
			Platform: cell.Platform,
			Config:   cell.Config,
		}
		job := sched.Submit(gctx, key, cell)

		g.Go(func() error {
			results[i] = runCell(job, sched, opts)
			return nil
		})
	}

	// Worker funcs never return errors; failures land in the report.
	g.Wait()

	return &Report{Workflow: opts.Workflow, Ref: opts.Ref, Cells: results}, nil
}

// Executes one matrix cell end to end: bootstrap and build per architecture,
// assemble when the cell spans multiple architectures, then archive.
func runCell(job *Job, sched *Scheduler, opts Options) CellResult {
	res := CellResult{Cell: job.Cell, Key: job.Key}

	conclude := func(state State, err error) CellResult {
		sched.conclude(job, state, err)
		res.State = state
		res.Err = err
		return res
	}

	if err := job.transition(StatePending, StateRunning); err != nil {
		// Superseded before it started.
		return conclude(StateCancelled, nil)
	}

	slog.Info("cell started", "key", job.Key.String(), "arches", job.Cell.Arches)

	builds, err := buildArchitectures(job, opts)
	if err != nil {
		if cancelled(job, err) {
			return conclude(StateCancelled, nil)
		}
		return conclude(StateFailed, err)
	}

	if opts.Bindings != nil {
		// Binding packages are an independent pipeline fed from the first
		// architecture's tree; a failure there does not block assembly.
		if err := opts.Bindings.Package(job.Context(), job.Cell.Platform, builds[0]); err != nil {
			slog.Warn("binding packaging failed", "platform", job.Cell.Platform, "error", err)
		}
	}

	working, err := assemble(job, opts, builds, &res)
	if err != nil {
		return conclude(StateFailed, err)
	}

	if err := job.Checkpoint(); err != nil {
		return conclude(StateCancelled, nil)
	}

	archive, err := opts.Archiver.Archive(job.Context(), working, job.Cell.Platform, job.Cell.Config)
	if err != nil {
		if cancelled(job, err) {
			return conclude(StateCancelled, nil)
		}
		return conclude(StateFailed, err)
	}
	res.Archive = archive

	return conclude(StateSucceeded, nil)
}

// Builds one tree per architecture in the cell, checking for supersession
// between steps.
func buildArchitectures(job *Job, opts Options) ([]*tree.Build, error) {
	builds := make([]*tree.Build, 0, len(job.Cell.Arches))

	for _, arch := range job.Cell.Arches {
		if err := job.Checkpoint(); err != nil {
			return nil, err
		}

		depRoot, err := opts.Bootstrap.Prepare(job.Context(), job.Cell.Platform, arch)
		if err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %w", ErrDependency, job.Cell.Platform, arch, err)
		}

		if err := job.Checkpoint(); err != nil {
			return nil, err
		}

		build, err := opts.Toolchain.Build(job.Context(), BuildSpec{
			Platform: job.Cell.Platform,
			Arch:     arch,
			Config:   job.Cell.Config,
			DepRoot:  depRoot,
		})
		if err != nil {
			if errors.Is(err, ErrToolchain) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s/%s: %w", ErrToolchain, job.Cell.Platform, arch, err)
		}

		slog.Info("architecture built",
			"key", job.Key.String(),
			"arch", arch,
			"root", build.Root,
			"files", build.Tree.Len(),
		)
		builds = append(builds, build)
	}

	return builds, nil
}

// Produces the cell's finished tree: the single build's tree as-is, or the
// universal tree assembled from all architecture builds.
func assemble(job *Job, opts Options, builds []*tree.Build, res *CellResult) (*tree.Tree, error) {
	if len(builds) == 1 {
		return builds[0].Tree, nil
	}

	inputs := make([]merge.Input, len(builds))
	for i, b := range builds {
		inputs[i] = merge.Input{Root: b.Root, Arch: b.Arch, Tree: b.Tree}
	}

	merged, err := merge.Assemble(job.Context(), opts.Combiner, inputs)
	if err != nil {
		return nil, err
	}

	for _, w := range merged.Warnings {
		slog.Warn("partial architecture coverage",
			"key", job.Key.String(), "path", w.Path, "missing", w.Arch)
	}

	res.Arches = merged.Arches
	res.Warnings = merged.Warnings
	return merged.Tree, nil
}

// Reports whether an error surfaced because the job itself was superseded.
func cancelled(job *Job, err error) bool {
	return job.Context().Err() != nil || errors.Is(err, context.Canceled)
}
