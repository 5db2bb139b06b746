package rasterstore

import (
	"fmt"
	"math"

	"go.uber.org/zap/zapcore"
)

// maxStreamSize is the largest stream the 8-byte header can declare while
// still leaving room for the header itself in the total-size accounting.
const maxStreamSize uint64 = math.MaxUint64 - headerSize

// Geometry describes the fixed shape of every raster frame in a stream.
// All frames of a stream share one geometry; raster containers cannot
// change shape mid-stream.
type Geometry struct {
	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int
	// Channels is the number of payload bytes carried per pixel.
	Channels int
}

// FrameCapacity returns the number of payload bytes one frame can hold.
func (g Geometry) FrameCapacity() int {
	return g.Width * g.Height * g.Channels
}

// Validate fails with ErrConfiguration when the geometry cannot carry a
// stream: any non-positive dimension, or a capacity that cannot hold the
// stream header.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 || g.Channels <= 0 {
		return fmt.Errorf("%w: non-positive dimension in %dx%dx%d",
			ErrConfiguration, g.Width, g.Height, g.Channels)
	}
	if g.FrameCapacity() <= headerSize {
		return fmt.Errorf("%w: frame capacity %d cannot hold %d-byte stream header",
			ErrConfiguration, g.FrameCapacity(), headerSize)
	}
	return nil
}

// FirstFrameDataSize returns the number of source bytes frame 0 carries;
// the stream header occupies the rest.
func (g Geometry) FirstFrameDataSize() int {
	return g.FrameCapacity() - headerSize
}

// NumFrames returns the number of frames needed to store size bytes plus
// the stream header.  Always at least 1: an empty stream still occupies
// one frame holding only the header.
func (g Geometry) NumFrames(size uint64) uint64 {
	capacity := uint64(g.FrameCapacity())
	total := size + headerSize
	n := total / capacity
	if total%capacity != 0 {
		n++
	}
	return n
}

func (g Geometry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("width", g.Width)
	enc.AddInt("height", g.Height)
	enc.AddInt("channels", g.Channels)
	return nil
}
