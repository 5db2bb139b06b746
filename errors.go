package rasterstore

import "errors"

var (
	// ErrConfiguration is returned before any frame is produced when the
	// frame geometry is unusable: a non-positive dimension, or a frame
	// capacity too small to hold the mandatory stream header.
	ErrConfiguration = errors.New("invalid frame configuration")

	// ErrTruncatedInput is returned at decode time when fewer frames or
	// bytes are available than the declared stream size requires.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrGeometryMismatch is returned when a frame payload does not match
	// the fixed capacity implied by the configured geometry.
	ErrGeometryMismatch = errors.New("frame geometry mismatch")
)
