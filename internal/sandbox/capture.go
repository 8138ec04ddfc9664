package sandbox

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/forgeline/unibuild/internal/tree"
)

// Captures the container's build root as an in-memory build tree.
//
// The directory is streamed out by running "tar cf - -C root ." inside the
// container and parsing the stream on the host. Regular files are stored
// relative to root and classified as they are read; directories, symlinks,
// and special entries are skipped.
func (c *BuildContainer) CaptureTree(ctx context.Context, root string) (*tree.Tree, error) {
	pr, pw := io.Pipe()

	errc := make(chan error, 1)
	go func() {
		err := c.mustExec(ctx, "tar archive", nil, pw, "tar", "cf", "-", "-C", root, ".")
		pw.CloseWithError(err)
		errc <- err
	}()

	t, err := readTar(pr)
	// Drain so the exec goroutine can finish even on a parse error.
	io.Copy(io.Discard, pr)

	if execErr := <-errc; execErr != nil {
		return nil, fmt.Errorf("%w: capture %s: %w", ErrSandbox, root, execErr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: capture %s: %w", ErrSandbox, root, err)
	}

	return t, nil
}

// Parses a tar stream into a build tree.
func readTar(r io.Reader) (*tree.Tree, error) {
	t := tree.New()
	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		rel := cleanEntryName(hdr.Name)
		if rel == "" {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}

		t.Add(rel, &tree.File{
			Data: data,
			Mode: os.FileMode(hdr.Mode).Perm(),
			Kind: tree.Classify(rel, data),
		})
	}
}

// Normalizes a tar entry name produced by "tar -C root ." to a clean
// relative path.
func cleanEntryName(name string) string {
	rel := path.Clean(strings.TrimPrefix(name, "./"))
	if rel == "." || rel == "" || strings.HasPrefix(rel, "..") {
		return ""
	}
	return rel
}
