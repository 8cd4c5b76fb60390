package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrCorrupt indicates a store file is present but does not match the
	// expected shape
	ErrCorrupt = errors.New("corrupt file")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
