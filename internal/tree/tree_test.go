package tree

import (
	"bytes"
	"testing"
)

func TestAddKeepsPathsSorted(t *testing.T) {
	tr := New()
	tr.Add("lib/z.a", &File{Kind: KindArtifact})
	tr.Add("bin/tool", &File{Kind: KindOpaque})
	tr.Add("lib/a.a", &File{Kind: KindArtifact})

	paths := tr.Paths()
	want := []string{"bin/tool", "lib/a.a", "lib/z.a"}
	if len(paths) != len(want) {
		t.Fatalf("len(paths) = %d, want %d", len(paths), len(want))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestAddReplaceDoesNotDuplicate(t *testing.T) {
	tr := New()
	tr.Add("lib/foo.a", &File{Data: []byte("v1"), Kind: KindArtifact})
	tr.Add("lib/foo.a", &File{Data: []byte("v2"), Kind: KindArtifact})

	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}
	f, ok := tr.File("lib/foo.a")
	if !ok {
		t.Fatal("file missing after replace")
	}
	if string(f.Data) != "v2" {
		t.Fatalf("data = %q, want v2", f.Data)
	}
}

func TestPathsOf(t *testing.T) {
	tr := New()
	tr.Add("lib/foo.a", &File{Kind: KindArtifact})
	tr.Add("lib/pkgconfig/foo.pc", &File{Kind: KindText})
	tr.Add("bin/blob", &File{Kind: KindOpaque})

	artifacts := tr.PathsOf(KindArtifact)
	if len(artifacts) != 1 || artifacts[0] != "lib/foo.a" {
		t.Fatalf("PathsOf(artifact) = %v, want [lib/foo.a]", artifacts)
	}
	text := tr.PathsOf(KindText)
	if len(text) != 1 || text[0] != "lib/pkgconfig/foo.pc" {
		t.Fatalf("PathsOf(text) = %v, want [lib/pkgconfig/foo.pc]", text)
	}
}

func TestCloneIsDeep(t *testing.T) {
	tr := New()
	tr.Add("lib/foo.a", &File{Data: []byte("original"), Mode: 0644, Kind: KindArtifact})

	c := tr.Clone()
	cf, _ := c.File("lib/foo.a")
	cf.Data[0] = 'X'
	c.Add("extra", &File{Kind: KindOpaque})

	of, _ := tr.File("lib/foo.a")
	if !bytes.Equal(of.Data, []byte("original")) {
		t.Fatalf("original mutated through clone: %q", of.Data)
	}
	if tr.Len() != 1 {
		t.Fatalf("original Len() = %d after clone Add, want 1", tr.Len())
	}
}

func TestArtifactKindOf(t *testing.T) {
	if k, ok := ArtifactKindOf("lib/libfoo.a"); !ok || k != ArtifactStatic {
		t.Fatalf("libfoo.a = %v %v, want static true", k, ok)
	}
	if k, ok := ArtifactKindOf("lib/libfoo.dylib"); !ok || k != ArtifactShared {
		t.Fatalf("libfoo.dylib = %v %v, want shared true", k, ok)
	}
	if k, ok := ArtifactKindOf("lib/libfoo.so.1.2"); !ok || k != ArtifactShared {
		t.Fatalf("libfoo.so.1.2 = %v %v, want shared true", k, ok)
	}
	if _, ok := ArtifactKindOf("include/foo.h"); ok {
		t.Fatal("foo.h classified as artifact")
	}
	if _, ok := ArtifactKindOf("lib/README"); ok {
		t.Fatal("README classified as artifact")
	}
}

func TestClassify(t *testing.T) {
	if k := Classify("lib/libfoo.a", []byte{0, 1, 2}); k != KindArtifact {
		t.Fatalf("libfoo.a = %v, want artifact", k)
	}
	if k := Classify("lib/cmake/foo.cmake", []byte("set(prefix /tmp/build)")); k != KindText {
		t.Fatalf("foo.cmake = %v, want text", k)
	}
	if k := Classify("share/data.bin", []byte{0xff, 0x00, 0x12}); k != KindOpaque {
		t.Fatalf("data.bin = %v, want opaque", k)
	}
}
