package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgeline/unibuild/internal/matrix"
	"github.com/forgeline/unibuild/internal/merge"
	"github.com/forgeline/unibuild/internal/pack"
	"github.com/forgeline/unibuild/internal/paths"
	"github.com/forgeline/unibuild/internal/sandbox"
)

// Flags shared by commands that construct the containerd-backed toolchain.
type backendFlags struct {
	Image      string `required:"" help:"Path to the toolchain image archive." placeholder:"PATH"`
	Script     string `required:"" help:"Shell command that performs one architecture build." placeholder:"CMD"`
	Containerd string `default:"/run/containerd/containerd.sock" help:"Containerd socket address."`
	Namespace  string `default:"unibuild" help:"Containerd namespace."`
	DepBase    string `default:"/opt/deps" help:"Dependency base path inside the toolchain image."`
	Deps       string `help:"Host tar archive of dependency roots, staged into the dependency base path." placeholder:"PATH"`
	Lipo       string `default:"lipo" help:"Binary-merge tool used for universal artifacts."`
	StableRef  string `default:"main" help:"Reference exempt from supersession." name:"stable-ref"`
	Output     string `short:"o" help:"Output directory for archives." placeholder:"DIR"`
	Prefix     string `default:"unibuild" help:"Archive name prefix."`

	Compression     string   `default:"zstd" enum:"zstd,gzip" help:"Archive codec."`
	BindingManifest []string `help:"Glob patterns selecting language-binding files; enables per-platform binding archives."`
}

// Returns the binding packager, nil when no binding manifest was given.
func (f *backendFlags) bindings(dir string) *pack.BindingArchiver {
	if len(f.BindingManifest) == 0 {
		return nil
	}
	return &pack.BindingArchiver{
		Dir:         dir,
		Prefix:      f.Prefix,
		Manifest:    f.BindingManifest,
		Compression: f.Compression,
	}
}

// Connects to containerd and builds the production toolchain runner.
func (f *backendFlags) backend() (*sandbox.Sandbox, *sandbox.Runner, error) {
	sb, err := sandbox.New(f.Containerd, f.Namespace)
	if err != nil {
		return nil, nil, err
	}
	runner := &sandbox.Runner{
		Sandbox: sb,
		Image:   f.Image,
		Script:  f.Script,
		Deps:    f.Deps,
		DepBase: f.DepBase,
	}
	return sb, runner, nil
}

// Represents the 'unibuild run' command.
type RunCmd struct {
	backendFlags

	Workflow string   `default:"release" help:"Workflow name."`
	Ref      string   `arg:"" help:"Reference being built (branch or tag)."`
	Cell     []string `required:"" help:"Matrix cell as platform:config:arch[,arch...]. Repeatable."`
	Manifest []string `help:"Glob patterns selecting tree paths to package. Empty packages everything."`
}

// Executes the run command.
//
// Runs every cell of the matrix in parallel and prints the per-cell report.
// The exit status is non-zero when any cell failed; archives produced by
// succeeded cells are kept either way.
func (c *RunCmd) Run(ctx context.Context) error {
	cells, err := parseCells(c.Cell)
	if err != nil {
		return err
	}

	sb, runner, err := c.backend()
	if err != nil {
		return err
	}
	defer sb.Close()

	out := c.Output
	if out == "" {
		out = paths.Dist()
	}

	opts := matrix.Options{
		Workflow:  c.Workflow,
		Ref:       c.Ref,
		Cells:     cells,
		Toolchain: runner,
		Bootstrap: &sandbox.DepRoots{Base: c.DepBase},
		Combiner:  merge.NewLipo(c.Lipo),
		Archiver: &pack.Archiver{
			Dir:         out,
			Prefix:      c.Prefix,
			Manifest:    c.Manifest,
			Compression: c.Compression,
		},
	}
	if b := c.bindings(out); b != nil {
		opts.Bindings = b
	}

	report, err := matrix.Run(ctx, matrix.NewScheduler(c.StableRef, nil), opts)
	if err != nil {
		return err
	}

	fmt.Print(report.String())

	if report.Failed() {
		return fmt.Errorf("workflow %s @ %s had failing cells", c.Workflow, c.Ref)
	}
	return nil
}

// Parses repeatable cell flags into matrix cells.
func parseCells(specs []string) ([]matrix.Cell, error) {
	cells := make([]matrix.Cell, len(specs))
	for i, s := range specs {
		cell, err := parseCell(s)
		if err != nil {
			return nil, err
		}
		cells[i] = cell
	}
	return cells, nil
}

// Parses one "platform:config:arch[,arch...]" cell specification.
func parseCell(s string) (matrix.Cell, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return matrix.Cell{}, fmt.Errorf("invalid cell %q: want platform:config:arch[,arch...]", s)
	}

	arches := strings.Split(parts[2], ",")
	for _, a := range arches {
		if a == "" {
			return matrix.Cell{}, fmt.Errorf("invalid cell %q: empty architecture", s)
		}
	}
	if parts[0] == "" || parts[1] == "" {
		return matrix.Cell{}, fmt.Errorf("invalid cell %q: empty platform or config", s)
	}

	return matrix.Cell{Platform: parts[0], Config: parts[1], Arches: arches}, nil
}
