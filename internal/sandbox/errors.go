package sandbox

import "errors"

var (
	ErrSandbox        = errors.New("sandbox error")
	ErrEmptyArchive   = errors.New("toolchain archive contains no image")
	ErrMultipleImages = errors.New("toolchain archive contains multiple images")
	ErrImageFormat    = errors.New("unsupported toolchain image format")
)
