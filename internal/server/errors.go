package server

import "errors"

var (
	ErrServer = errors.New("server error")
)
