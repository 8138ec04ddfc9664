package merge

import (
	"bytes"
	"testing"
)

func TestReferencesFindsAllOccurrences(t *testing.T) {
	data := []byte("prefix=/tmp/build-x86\nlibdir=/tmp/build-x86/lib\n")
	refs := References(data, "/tmp/build-x86")
	if len(refs) != 2 {
		t.Fatalf("len(refs) = %d, want 2", len(refs))
	}
	if refs[0].Offset != 7 {
		t.Fatalf("refs[0].Offset = %d, want 7", refs[0].Offset)
	}
}

func TestReferencesRejectsLongerToken(t *testing.T) {
	data := []byte("libdir=/tmp/build-x86-staging/lib\n")
	if refs := References(data, "/tmp/build-x86"); len(refs) != 0 {
		t.Fatalf("len(refs) = %d, want 0 for prefix of a longer path", len(refs))
	}
}

func TestReferencesAcceptsSubpath(t *testing.T) {
	data := []byte("include=/tmp/build-x86/include")
	refs := References(data, "/tmp/build-x86")
	if len(refs) != 1 {
		t.Fatalf("len(refs) = %d, want 1 for a deeper path under the root", len(refs))
	}
}

func TestReferencesAtEndOfFile(t *testing.T) {
	data := []byte("root=/tmp/build-x86")
	if refs := References(data, "/tmp/build-x86"); len(refs) != 1 {
		t.Fatalf("len(refs) = %d, want 1 at end of file", len(refs))
	}
}

func TestRewriteReplacesAll(t *testing.T) {
	data := []byte("prefix=/old/root\nlibdir=/old/root/lib\nother=/old/rooted\n")
	got, n := Rewrite(data, "/old/root", "/new/primary")
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	want := []byte("prefix=/new/primary\nlibdir=/new/primary/lib\nother=/old/rooted\n")
	if !bytes.Equal(got, want) {
		t.Fatalf("rewrite = %q, want %q", got, want)
	}
}

func TestRewriteIdempotent(t *testing.T) {
	data := []byte("prefix=/old/root\nlibdir=/old/root/lib\n")
	once, n1 := Rewrite(data, "/old/root", "/new/primary")
	if n1 != 2 {
		t.Fatalf("first pass n = %d, want 2", n1)
	}
	twice, n2 := Rewrite(once, "/old/root", "/new/primary")
	if n2 != 0 {
		t.Fatalf("second pass n = %d, want 0", n2)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("second pass changed content: %q vs %q", once, twice)
	}
}

func TestRewriteNoOccurrencesReturnsInput(t *testing.T) {
	data := []byte("nothing to see here\n")
	got, n := Rewrite(data, "/old/root", "/new/primary")
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
	if &got[0] != &data[0] {
		t.Fatal("untouched rewrite reallocated the slice")
	}
}
