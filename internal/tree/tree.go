package tree

import (
	"os"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/opencontainers/go-digest"
)

// Classifies the content of a file within a build tree.
type Kind string

const (
	// A static or shared library produced by the toolchain.
	KindArtifact Kind = "artifact"

	// A text file that may embed absolute paths into a build root.
	KindText Kind = "text"

	// Anything else. Opaque files are carried through unmodified.
	KindOpaque Kind = "opaque"
)

// Classifies a library artifact as static or shared.
type ArtifactKind string

const (
	ArtifactStatic ArtifactKind = "static"
	ArtifactShared ArtifactKind = "shared"
)

// A single file within a build tree.
type File struct {
	Data []byte      // File content.
	Mode os.FileMode // Permission bits, preserved across capture and write-back.
	Kind Kind        // Content classification, set once at capture.
}

// Returns the sha256 digest of the file content.
func (f *File) Digest() digest.Digest {
	return digest.FromBytes(f.Data)
}

// An ordered mapping from relative path to file.
//
// Paths use forward slashes and are kept sorted so that iteration order is
// deterministic regardless of insertion order.
type Tree struct {
	paths []string
	files map[string]*File
}

// Creates an empty tree.
func New() *Tree {
	return &Tree{files: make(map[string]*File)}
}

// Inserts or replaces the file at the given relative path.
func (t *Tree) Add(path string, f *File) {
	if _, ok := t.files[path]; !ok {
		i := sort.SearchStrings(t.paths, path)
		t.paths = slices.Insert(t.paths, i, path)
	}
	t.files[path] = f
}

// Returns the file at the given relative path.
func (t *Tree) File(path string) (*File, bool) {
	f, ok := t.files[path]
	return f, ok
}

// Returns the number of files in the tree.
func (t *Tree) Len() int {
	return len(t.paths)
}

// Returns all relative paths in sorted order.
//
// The returned slice is a copy; mutating it does not affect the tree.
func (t *Tree) Paths() []string {
	return slices.Clone(t.paths)
}

// Returns the sorted relative paths of all files with the given kind.
func (t *Tree) PathsOf(kind Kind) []string {
	var out []string
	for _, p := range t.paths {
		if t.files[p].Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Returns a deep copy of the tree.
//
// File content is duplicated, so mutations of the clone never show through
// to the original.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		paths: slices.Clone(t.paths),
		files: make(map[string]*File, len(t.files)),
	}
	for p, f := range t.files {
		c.files[p] = &File{
			Data: slices.Clone(f.Data),
			Mode: f.Mode,
			Kind: f.Kind,
		}
	}
	return c
}

// The output of one architecture-specific build.
//
// Root is the absolute directory the tree was captured from. Reference-
// bearing files inside the tree may embed this path literally.
type Build struct {
	Root string
	Arch string
	Tree *Tree
}

// File extensions recognized as library artifacts.
var artifactExts = map[string]ArtifactKind{
	".a":     ArtifactStatic,
	".lib":   ArtifactStatic,
	".so":    ArtifactShared,
	".dylib": ArtifactShared,
	".dll":   ArtifactShared,
}

// Returns the artifact kind for a relative path, or false when the path does
// not name a library artifact.
//
// Versioned shared objects (libfoo.so.1.2) are recognized by scanning each
// dotted suffix, not just the last one.
func ArtifactKindOf(path string) (ArtifactKind, bool) {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	for {
		i := strings.LastIndexByte(base, '.')
		if i < 0 {
			return "", false
		}
		if k, ok := artifactExts[base[i:]]; ok {
			return k, true
		}
		base = base[:i]
	}
}

// Classifies file content captured at the given relative path.
//
// Library artifacts are recognized by extension. Everything else is text
// when it is valid UTF-8 with no NUL bytes, opaque otherwise.
func Classify(path string, data []byte) Kind {
	if _, ok := ArtifactKindOf(path); ok {
		return KindArtifact
	}
	if isText(data) {
		return KindText
	}
	return KindOpaque
}

// Reports whether data looks like a text file.
func isText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return true
}
