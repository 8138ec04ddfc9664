package pack

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/forgeline/unibuild/internal/tree"
)

// Default permission mode for the output directory.
const defaultDirMode os.FileMode = 0755

// A produced distributable bundle.
type Archive struct {
	Name   string        // Deterministic archive file name.
	Path   string        // Absolute path of the written archive.
	Digest digest.Digest // sha256 of the archive content.
	Files  int           // Number of files included.
}

// Archive codecs.
const (
	CompressionZstd = "zstd"
	CompressionGzip = "gzip"
)

// Writes distributable archives for finished build trees.
type Archiver struct {
	Dir         string   // Output directory, created on first use.
	Prefix      string   // Archive name prefix (e.g., the project name).
	Manifest    []string // Glob patterns selecting the subtrees to include.
	Compression string   // Archive codec. Empty selects zstd.
}

// Returns the deterministic archive name for a matrix cell.
func (a *Archiver) Name(platform, config string) string {
	ext := ".tar.zst"
	if a.Compression == CompressionGzip {
		ext = ".tar.gz"
	}
	return fmt.Sprintf("%s-%s-%s%s", a.Prefix, platform, config, ext)
}

// Archives the manifest-selected files of a tree.
//
// The archive is a zstd-compressed tar stream. Entries appear in sorted
// path order with zeroed timestamps and ownership, so identical trees
// produce identical archives. Fails with [ErrPackaging] when a manifest
// pattern references an absent subtree.
func (a *Archiver) Archive(ctx context.Context, t *tree.Tree, platform, config string) (*Archive, error) {
	selected, err := selectPaths(a.Manifest, t.Paths())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(a.Dir, defaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPackaging, err)
	}

	name := a.Name(platform, config)
	path := filepath.Join(a.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPackaging, err)
	}
	defer f.Close()

	digester := digest.SHA256.Digester()
	if err := a.writeArchive(ctx, f, digester, t, selected); err != nil {
		os.Remove(path)
		return nil, err
	}

	slog.Info("archive written", "path", path, "files", len(selected))

	return &Archive{
		Name:   name,
		Path:   path,
		Digest: digester.Digest(),
		Files:  len(selected),
	}, nil
}

// Streams the selected files as a compressed tar to the output file,
// feeding the digester with the compressed bytes.
func (a *Archiver) writeArchive(ctx context.Context, f *os.File, digester digest.Digester, t *tree.Tree, selected []string) error {
	zw, err := a.compressor(io.MultiWriter(f, digester.Hash()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPackaging, err)
	}

	tw := tar.NewWriter(zw)

	for _, p := range selected {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}

		file, _ := t.File(p)
		hdr := &tar.Header{
			Name: p,
			Mode: int64(file.Mode),
			Size: int64(len(file.Data)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			zw.Close()
			return fmt.Errorf("%w: %s: %w", ErrPackaging, p, err)
		}
		if _, err := tw.Write(file.Data); err != nil {
			zw.Close()
			return fmt.Errorf("%w: %s: %w", ErrPackaging, p, err)
		}
	}

	if err := tw.Close(); err != nil {
		zw.Close()
		return fmt.Errorf("%w: %w", ErrPackaging, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrPackaging, err)
	}
	return nil
}

// Returns the compressing writer for the configured codec.
//
// Neither codec embeds a timestamp unless one is set on its header, so
// determinism holds for both.
func (a *Archiver) compressor(w io.Writer) (io.WriteCloser, error) {
	switch a.Compression {
	case "", CompressionZstd:
		return zstd.NewWriter(w)
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	}
	return nil, fmt.Errorf("unknown compression %q", a.Compression)
}
