package tree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Default permission mode for directories created during write-back.
const defaultDirMode os.FileMode = 0755

// Captures the regular files under root into a new tree.
//
// Paths are stored relative to root with forward slashes. Symlinks and
// other non-regular entries are skipped; a build tree carries content, not
// filesystem structure. Each file is classified as it is read.
func Snapshot(root string) (*Tree, error) {
	t := New()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		t.Add(rel, &File{
			Data: data,
			Mode: info.Mode().Perm(),
			Kind: Classify(rel, data),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot %s: %w", ErrSnapshot, root, err)
	}

	return t, nil
}

// Writes the tree's files under dir, creating parent directories as needed.
//
// Existing files are overwritten. File permission bits are restored from
// the captured modes.
func (t *Tree) WriteTo(dir string) error {
	for _, rel := range t.paths {
		f := t.files[rel]
		dest := filepath.Join(dir, filepath.FromSlash(rel))

		if err := os.MkdirAll(filepath.Dir(dest), defaultDirMode); err != nil {
			return fmt.Errorf("%w: %w", ErrSnapshot, err)
		}
		if err := os.WriteFile(dest, f.Data, f.Mode); err != nil {
			return fmt.Errorf("%w: %w", ErrSnapshot, err)
		}
	}
	return nil
}
