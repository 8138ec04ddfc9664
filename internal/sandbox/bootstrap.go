package sandbox

import (
	"context"
	"fmt"
)

// Resolves dependency roots baked into the toolchain image.
//
// Toolchain images ship their third-party dependencies pre-installed under a
// base path, one subtree per (platform, architecture) pair. Prepare maps a
// build request to the matching subtree; the toolchain script fails with a
// dependency error if the subtree turns out to be absent.
type DepRoots struct {
	Base string // Base path inside the toolchain image.
}

// Returns the dependency root path for a platform and architecture.
func (d *DepRoots) Prepare(_ context.Context, platform, arch string) (string, error) {
	if d.Base == "" {
		return "", fmt.Errorf("%w: dependency base path is not set", ErrSandbox)
	}
	return fmt.Sprintf("%s/%s-%s", d.Base, platform, arch), nil
}
