package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/forgeline/unibuild/internal/matrix"
	"github.com/forgeline/unibuild/internal/tree"
)

// Default build root inside the container, also the root path that
// reference-bearing build output embeds.
const defaultBuildRoot = "/var/build"

// Architecture aliases mapped to OCI architecture names.
var ociArches = map[string]string{
	"x86_64":  "amd64",
	"aarch64": "arm64",
}

// Runs toolchain builds in per-architecture containers.
//
// Implements the orchestrator's toolchain interface: one container per
// (platform, architecture, configuration) invocation, torn down after the
// build tree has been captured.
type Runner struct {
	Sandbox *Sandbox
	Image   string // Path to the toolchain image archive.
	Script  string // Shell command that performs the build.
	Root    string // Build root inside the container. Empty selects /var/build.
	Deps    string // Optional host tar archive of dependency roots.
	DepBase string // Base path the dependency archive is extracted into.
}

// Invokes the external toolchain once and captures the resulting tree.
//
// The build script runs with the dependency root, configuration, and
// architecture exported in its environment and the build root as its
// working directory. A non-zero script exit is a toolchain failure; the
// captured tree is tagged with the build root so the assembler can rewrite
// embedded references later.
func (r *Runner) Build(ctx context.Context, spec matrix.BuildSpec) (*tree.Build, error) {
	root := r.Root
	if root == "" {
		root = defaultBuildRoot
	}
	// Per-architecture roots keep embedded references distinguishable
	// when trees for the same platform are superimposed.
	root = fmt.Sprintf("%s/%s-%s", root, spec.Platform, spec.Arch)

	id := containerID(spec)
	ctr, err := r.Sandbox.Start(ctx, r.Image, id, ociPlatform(spec.Arch))
	if err != nil {
		return nil, err
	}
	defer ctr.Destroy(ctx)

	if err := ctr.MkdirAll(ctx, root); err != nil {
		return nil, err
	}

	if r.Deps != "" {
		if err := r.stageDeps(ctx, ctr); err != nil {
			return nil, fmt.Errorf("%w: staging dependencies: %w", matrix.ErrDependency, err)
		}
	}

	env := []string{
		"UNIBUILD_DEP_ROOT=" + spec.DepRoot,
		"UNIBUILD_PLATFORM=" + spec.Platform,
		"UNIBUILD_ARCH=" + spec.Arch,
		"UNIBUILD_CONFIG=" + spec.Config,
		"UNIBUILD_ROOT=" + root,
	}

	slog.Info("toolchain started", "container", id, "arch", spec.Arch, "root", root)

	result, err := ctr.Exec(ctx, r.Script, env, root)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("%w: exit code %d: %s",
			matrix.ErrToolchain, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	t, err := ctr.CaptureTree(ctx, root)
	if err != nil {
		return nil, err
	}

	return &tree.Build{Root: root, Arch: spec.Arch, Tree: t}, nil
}

// Extracts the host dependency archive into the container's dependency
// base path. Images that ship their dependencies pre-installed leave Deps
// empty and skip this step.
func (r *Runner) stageDeps(ctx context.Context, ctr *BuildContainer) error {
	if r.DepBase == "" {
		return fmt.Errorf("dependency base path is not set")
	}

	f, err := os.Open(r.Deps)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ctr.MkdirAll(ctx, r.DepBase); err != nil {
		return err
	}
	return ctr.CopyTo(ctx, f, r.DepBase)
}

// Returns a unique container ID for a build invocation.
func containerID(spec matrix.BuildSpec) string {
	return fmt.Sprintf("unibuild-%s-%s-%s", spec.Platform, spec.Arch, spec.Config)
}

// Maps an architecture name to an OCI platform string.
func ociPlatform(arch string) string {
	if a, ok := ociArches[arch]; ok {
		arch = a
	}
	return "linux/" + arch
}
