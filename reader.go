package rasterstore

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rastervault/raster-store-go/env"
)

type readerImpl struct {
	src env.FrameSource
	geo Geometry

	declared uint64
	consumed uint64

	// frame holds the unread data bytes of the current frame.
	frame   []byte
	frameID int64

	o readerOptions
}

var _ io.Reader = (*readerImpl)(nil)

type Reader interface {
	// Read yields the reconstructed stream.  It returns ErrTruncatedInput
	// when the source runs out of frames before the declared size is
	// reached, and io.EOF once the whole stream has been delivered.
	// Trailing padding is never surfaced.
	Read(dst []byte) (int, error)

	// Size returns the size of the stored stream, as declared by the
	// stream header.
	Size() int64
}

// NewReader reconstructs the original byte stream from the frames yielded
// by src.  It consumes the first frame immediately to parse the stream
// header.
func NewReader(src env.FrameSource, geo Geometry, opts ...ROption) (Reader, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}

	sr := readerImpl{
		src: src,
		geo: geo,
	}

	sr.o.setDefault()
	for _, o := range opts {
		err := o(&sr.o)
		if err != nil {
			return nil, err
		}
	}

	frame, err := sr.nextFrame()
	if err != nil {
		return nil, err
	}

	var h streamHeader
	if err := h.UnmarshalBinary(frame); err != nil {
		return nil, err
	}
	sr.declared = h.OriginalSize
	sr.frame = frame[headerSize:]

	sr.o.logger.Debug("stream header parsed",
		zap.Object("header", &h), zap.Int64("frames", src.NumFrames()))
	return &sr, nil
}

func (s *readerImpl) Read(dst []byte) (int, error) {
	remaining := s.declared - s.consumed
	if remaining == 0 {
		return 0, io.EOF
	}

	if len(s.frame) == 0 {
		frame, err := s.nextFrame()
		if err != nil {
			return 0, err
		}
		s.frame = frame
	}

	size := uint64(len(s.frame))
	if size > uint64(len(dst)) {
		size = uint64(len(dst))
	}
	if size > remaining {
		size = remaining
	}

	copy(dst, s.frame[:size])
	s.frame = s.frame[size:]
	s.consumed += size
	return int(size), nil
}

func (s *readerImpl) Size() int64 {
	return int64(s.declared)
}

// nextFrame pulls one frame from the source and validates its geometry.
// Source exhaustion here always means missing data: frames past the
// declared size are never requested.
func (s *readerImpl) nextFrame() ([]byte, error) {
	frame, err := s.src.NextFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: source exhausted at frame %d with %d of %d bytes delivered",
				ErrTruncatedInput, s.frameID, s.consumed, s.declared)
		}
		return nil, fmt.Errorf("failed to read frame %d: %w", s.frameID, err)
	}
	if len(frame) != s.geo.FrameCapacity() {
		return nil, fmt.Errorf("%w: frame %d has %d bytes, capacity is %d",
			ErrGeometryMismatch, s.frameID, len(frame), s.geo.FrameCapacity())
	}
	s.frameID++
	return frame, nil
}
