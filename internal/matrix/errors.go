package matrix

import "errors"

var (
	// The dependency bootstrap step failed for a cell.
	ErrDependency = errors.New("dependency bootstrap failed")

	// The external toolchain returned a failure for a cell.
	ErrToolchain = errors.New("toolchain build failed")

	// A job state transition was requested out of order.
	ErrTransition = errors.New("invalid job transition")
)
