package betteria

import "errors"

// Sentinel errors for the failure kinds callers may want to distinguish.
// Everything else is wrapped with enough context to be actionable.
var (
	// ErrInvalidConfig is wrapped by all option validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPageCountMismatch means the rasterizer produced a different set
	// of page images than the page counter promised.
	ErrPageCountMismatch = errors.New("page count mismatch")

	// ErrNoPages means there was nothing to pack into the output PDF.
	ErrNoPages = errors.New("no pages")

	// ErrOutputIsDirectory means the output path resolves to a directory.
	ErrOutputIsDirectory = errors.New("output path is a directory")
)
