package pack

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Selects the tree paths matched by the manifest patterns.
//
// Paths are returned in tree order without duplicates. Every pattern must
// select at least one file; a pattern that matches nothing references an
// absent subtree and fails with [ErrPackaging].
func selectPaths(manifest []string, paths []string) ([]string, error) {
	if len(manifest) == 0 {
		return paths, nil
	}

	matched := make(map[string]bool)

	for _, pattern := range manifest {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: invalid manifest pattern %q", ErrPackaging, pattern)
		}

		hit := false
		for _, p := range paths {
			ok, err := doublestar.Match(pattern, p)
			if err != nil {
				return nil, fmt.Errorf("%w: pattern %q: %w", ErrPackaging, pattern, err)
			}
			if ok {
				matched[p] = true
				hit = true
			}
		}
		if !hit {
			return nil, fmt.Errorf("%w: manifest pattern %q matched no files", ErrPackaging, pattern)
		}
	}

	out := make([]string, 0, len(matched))
	for _, p := range paths {
		if matched[p] {
			out = append(out, p)
		}
	}
	return out, nil
}
