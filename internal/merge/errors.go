package merge

import "errors"

var (
	ErrMergeTool = errors.New("binary merge failed")
	ErrInput     = errors.New("invalid merge input")
)
