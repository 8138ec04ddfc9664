package pack

import "errors"

var (
	ErrPackaging = errors.New("packaging failed")
)
