package matrix

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forgeline/unibuild/internal/merge"
	"github.com/forgeline/unibuild/internal/pack"
)

// The final outcome of a workflow run: one terminal result per matrix cell.
type Report struct {
	Workflow string
	Ref      string
	Cells    []CellResult
}

// Reports whether any required cell failed.
//
// Cancelled cells are not failures; they produced no archive because they
// were superseded, not because anything went wrong.
func (r *Report) Failed() bool {
	for _, c := range r.Cells {
		if c.State == StateFailed {
			return true
		}
	}
	return false
}

// Returns the archives produced by succeeded cells.
//
// Completed archives are surfaced even when a sibling cell failed.
func (r *Report) Archives() []*pack.Archive {
	var out []*pack.Archive
	for _, c := range r.Cells {
		if c.Archive != nil {
			out = append(out, c.Archive)
		}
	}
	return out
}

// Renders the per-cell summary: one line per cell with its terminal state,
// plus merge warnings and archive digests where present.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "workflow %s @ %s\n", r.Workflow, r.Ref)

	for _, c := range r.Cells {
		fmt.Fprintf(&b, "  %s/%s: %s\n", c.Cell.Platform, c.Cell.Config, c.label())
		for _, w := range c.Warnings {
			fmt.Fprintf(&b, "    warning: %s missing from %s\n", w.Path, w.Arch)
		}
		if c.Archive != nil {
			fmt.Fprintf(&b, "    archive: %s (%s)\n", c.Archive.Name, c.Archive.Digest)
		}
	}

	return b.String()
}

// Returns the user-visible state label for a cell, one of "succeeded",
// "failed:<kind>", or "cancelled".
func (c *CellResult) label() string {
	if c.State != StateFailed {
		return string(c.State)
	}
	return "failed:" + failureKind(c.Err)
}

// Maps a cell failure to its taxonomy kind.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrDependency):
		return "dependency"
	case errors.Is(err, ErrToolchain):
		return "toolchain"
	case errors.Is(err, merge.ErrMergeTool):
		return "merge-tool"
	case errors.Is(err, pack.ErrPackaging):
		return "packaging"
	default:
		return "unknown"
	}
}
