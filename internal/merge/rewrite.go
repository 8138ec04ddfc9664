package merge

import "bytes"

// A single occurrence of a build-root path inside a reference-bearing file.
type Reference struct {
	Offset int // Byte offset of the occurrence within the file.
}

// Reports whether the byte following a root match continues the same path
// token.
//
// A root occurrence counts as a reference when it is followed by a path
// separator (a deeper path under the same root) or by a token boundary
// (quote, whitespace, end of file). A trailing word character means the
// match is a prefix of a longer, unrelated path such as
// "/tmp/build-arm64-extra" and must not be rewritten.
func extendsToken(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '.', b == '_', b == '-', b == '~':
		return true
	}
	return false
}

// Finds all occurrences of root within data that qualify as path references.
//
// Matches are located left to right; overlapping matches cannot occur since
// a root never contains itself as a proper prefix followed by a boundary.
func References(data []byte, root string) []Reference {
	if root == "" {
		return nil
	}

	needle := []byte(root)
	var refs []Reference

	for from := 0; ; {
		i := bytes.Index(data[from:], needle)
		if i < 0 {
			return refs
		}
		at := from + i
		end := at + len(needle)
		if end >= len(data) || !extendsToken(data[end]) {
			refs = append(refs, Reference{Offset: at})
		}
		from = end
	}
}

// Replaces every reference to oldRoot in data with newRoot.
//
// Returns the rewritten content and the number of references replaced. When
// data contains no references the original slice is returned untouched, so
// repeating a rewrite is a no-op.
func Rewrite(data []byte, oldRoot, newRoot string) ([]byte, int) {
	refs := References(data, oldRoot)
	if len(refs) == 0 {
		return data, 0
	}

	var out bytes.Buffer
	out.Grow(len(data) + len(refs)*(len(newRoot)-len(oldRoot)))

	prev := 0
	for _, ref := range refs {
		out.Write(data[prev:ref.Offset])
		out.WriteString(newRoot)
		prev = ref.Offset + len(oldRoot)
	}
	out.Write(data[prev:])

	return out.Bytes(), len(refs)
}
