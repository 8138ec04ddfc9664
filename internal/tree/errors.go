package tree

import "errors"

var (
	ErrSnapshot = errors.New("build tree capture failed")
)
