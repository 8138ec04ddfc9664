package merge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Default binary-merge tool. Apple's lipo is the canonical implementation;
// llvm-lipo is command-line compatible.
const defaultLipoTool = "lipo"

// Combines binaries by shelling out to lipo.
type Lipo struct {
	tool string
}

// Creates a lipo-backed [Combiner].
//
// An empty tool name selects "lipo" from PATH.
func NewLipo(tool string) *Lipo {
	if tool == "" {
		tool = defaultLipoTool
	}
	return &Lipo{tool: tool}
}

// Combines two single-architecture binaries via "lipo -create".
//
// The inputs are staged as temporary files since lipo operates on paths,
// not streams. lipo exits non-zero when the inputs are not thin binaries of
// distinct architectures, which surfaces incompatible formats.
func (l *Lipo) Combine(ctx context.Context, a, b []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "unibuild-lipo-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	inA := filepath.Join(dir, "a")
	inB := filepath.Join(dir, "b")
	out := filepath.Join(dir, "fat")

	if err := os.WriteFile(inA, a, 0644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(inB, b, 0644); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, l.tool, "-create", inA, inB, "-output", out)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w (%s)", l.tool, err, strings.TrimSpace(stderr.String()))
	}

	return os.ReadFile(out)
}
