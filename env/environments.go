// Package env defines the injection points between the framing core and
// the component that persists raster frames.  The core never performs
// artifact I/O itself; it hands fixed-capacity frame payloads to a
// FrameSink on encode and pulls them back from a FrameSource on decode.
package env

// FrameSink persists fixed-capacity frame payloads in encode order.
// The sink must be lossless: any color-space conversion, subsampling or
// lossy compression of the persisted frames breaks reconstruction.
type FrameSink interface {
	// WriteFrame is called once per frame, in order, with a payload of
	// exactly the configured frame capacity.
	WriteFrame(p []byte) (n int, err error)
}

// FrameSource yields persisted frame payloads back in original order.
type FrameSource interface {
	// NextFrame returns the next frame payload.  Returns io.EOF after the
	// last frame.
	NextFrame() ([]byte, error)

	// NumFrames returns the total number of persisted frames.
	NumFrames() int64
}
