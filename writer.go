package rasterstore

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rastervault/raster-store-go/env"
)

type writerImpl struct {
	sink env.FrameSink
	geo  Geometry

	declared uint64
	buf      []byte

	frames  *atomic.Int64
	written *atomic.Uint64

	o writerOptions

	once *sync.Once
}

var (
	_ io.Writer = (*writerImpl)(nil)
	_ io.Closer = (*writerImpl)(nil)
)

type Writer interface {
	// Write appends source bytes to the stream, flushing each frame to the
	// sink as soon as it fills.  Writing more than the declared stream
	// size fails with ErrConfiguration.
	Write(src []byte) (int, error)

	// Close pads the final frame with zero bytes, flushes it, and fails
	// with ErrTruncatedInput when fewer bytes than declared were written.
	//
	// Caller is still responsible for closing the underlying sink.
	Close() (err error)

	// FramesWritten returns the number of frames flushed so far.  Safe for
	// concurrent use, e.g. by a progress reporter.
	FramesWritten() int64

	// BytesWritten returns the number of source bytes framed so far.  Safe
	// for concurrent use.
	BytesWritten() uint64
}

// ChunkSource returns the source bytes of one frame at a time: up to
// Geometry.FirstFrameDataSize bytes on the first call and up to
// Geometry.FrameCapacity afterwards.  A short chunk ends the stream.
// When there are no more chunks, returns nil.
type ChunkSource func() ([]byte, error)

// ConcurrentWriter allows framing many chunks concurrently.
type ConcurrentWriter interface {
	Writer

	// WriteMany frames chunks concurrently while delivering them to the
	// sink in order.  It must be used on a fresh writer and not mixed with
	// Write.
	WriteMany(ctx context.Context, next ChunkSource, options ...WriteManyOption) error
}

// NewWriter splits a stream of declared size into fixed-capacity frames
// and hands them to sink in order.  The size must be known up front: it is
// embedded in the first frame's stream header.
func NewWriter(sink env.FrameSink, geo Geometry, size uint64, opts ...WOption) (ConcurrentWriter, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	if size > maxStreamSize {
		return nil, fmt.Errorf("%w: stream size %d overflows the header", ErrConfiguration, size)
	}

	sw := writerImpl{
		sink:     sink,
		geo:      geo,
		declared: size,
		frames:   atomic.NewInt64(0),
		written:  atomic.NewUint64(0),
		once:     &sync.Once{},
	}

	sw.o.setDefault()
	for _, o := range opts {
		err := o(&sw.o)
		if err != nil {
			return nil, err
		}
	}

	sw.buf = make([]byte, headerSize, geo.FrameCapacity())
	h := streamHeader{OriginalSize: size}
	h.marshalBinaryInline(sw.buf)
	sw.o.logger.Debug("stream opened", zap.Object("header", &h), zap.Object("geometry", geo))

	return &sw, nil
}

func (s *writerImpl) Write(src []byte) (int, error) {
	if s.written.Load()+uint64(len(src)) > s.declared {
		return 0, fmt.Errorf("%w: write of %d bytes exceeds declared stream size %d",
			ErrConfiguration, len(src), s.declared)
	}

	total := len(src)
	capacity := s.geo.FrameCapacity()
	for len(src) > 0 {
		n := capacity - len(s.buf)
		if n > len(src) {
			n = len(src)
		}
		s.buf = append(s.buf, src[:n]...)
		src = src[n:]
		s.written.Add(uint64(n))

		if len(s.buf) == capacity {
			if err := s.emit(s.buf); err != nil {
				return 0, err
			}
			s.buf = s.buf[:0]
		}
	}
	return total, nil
}

func (s *writerImpl) Close() (err error) {
	s.once.Do(func() {
		if s.written.Load() != s.declared {
			err = fmt.Errorf("%w: wrote %d of %d declared bytes",
				ErrTruncatedInput, s.written.Load(), s.declared)
			return
		}
		err = multierr.Append(err, s.flushTail())
	})

	s.buf = nil
	return
}

func (s *writerImpl) FramesWritten() int64 {
	return s.frames.Load()
}

func (s *writerImpl) BytesWritten() uint64 {
	return s.written.Load()
}

// flushTail pads the in-progress frame to full capacity and emits it.
// A stream that ends exactly on a frame boundary has nothing buffered and
// emits no padding frame.
func (s *writerImpl) flushTail() error {
	if len(s.buf) == 0 {
		return nil
	}

	frame := s.buf[:cap(s.buf)]
	for i := len(s.buf); i < len(frame); i++ {
		frame[i] = 0
	}
	return s.emit(frame)
}

func (s *writerImpl) emit(frame []byte) error {
	id := s.frames.Load()

	n, err := s.sink.WriteFrame(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("partial frame write: %d out of %d", n, len(frame))
	}

	s.o.logger.Debug("emitting frame",
		zap.Int64("frame", id), zap.Int("capacity", len(frame)))
	s.frames.Inc()
	return nil
}

// frameDataSize returns the number of source bytes frame id carries.
func (s *writerImpl) frameDataSize(id uint64) int {
	if id == 0 {
		return s.geo.FirstFrameDataSize()
	}
	return s.geo.FrameCapacity()
}

type frameResult struct {
	id      uint64
	payload []byte
	raw     uint32
}

func (s *writerImpl) writeManyFramer(ctx context.Context, ch chan<- frameResult, id uint64, data []byte) func() error {
	return func() error {
		frame := make([]byte, s.geo.FrameCapacity())
		dst := frame
		if id == 0 {
			h := streamHeader{OriginalSize: s.declared}
			h.marshalBinaryInline(frame)
			dst = frame[headerSize:]
		}
		copy(dst, data)

		select {
		case <-ctx.Done():
		// Fulfill our promise
		case ch <- frameResult{id: id, payload: frame, raw: uint32(len(data))}:
			close(ch)
		}

		return nil
	}
}

func (s *writerImpl) writeManyProducer(ctx context.Context, next ChunkSource, g *errgroup.Group, queue chan<- chan frameResult) func() error {
	return func() error {
		var id uint64
		ended := false
		for {
			chunk, err := next()
			if err != nil {
				return fmt.Errorf("chunk source failed: %w", err)
			}
			if chunk == nil {
				if id == 0 {
					// An empty stream still yields one header-only frame.
					if err := s.enqueue(ctx, g, queue, 0, nil); err != nil {
						return err
					}
				}
				close(queue)
				return nil
			}
			if ended {
				return fmt.Errorf("%w: chunk after a short chunk ended the stream", ErrConfiguration)
			}

			want := s.frameDataSize(id)
			if len(chunk) > want {
				return fmt.Errorf("%w: chunk of %d bytes exceeds frame data size %d",
					ErrConfiguration, len(chunk), want)
			}
			if len(chunk) < want {
				ended = true
			}

			// The source may reuse its buffer between calls.
			data := make([]byte, len(chunk))
			copy(data, chunk)

			if err := s.enqueue(ctx, g, queue, id, data); err != nil {
				return err
			}
			id++
		}
	}
}

// enqueue puts a channel on the queue as a sort of promise.
// This is a nice trick to keep frames ordered even when framing completes
// out of order.
func (s *writerImpl) enqueue(ctx context.Context, g *errgroup.Group, queue chan<- chan frameResult, id uint64, data []byte) error {
	ch := make(chan frameResult, 1)
	select {
	case <-ctx.Done():
		return nil
	case queue <- ch:
	}

	g.Go(s.writeManyFramer(ctx, ch, id, data))
	return nil
}

func (s *writerImpl) writeManyConsumer(ctx context.Context, callback func(uint32), queue <-chan chan frameResult) func() error {
	return func() error {
		for {
			var ch <-chan frameResult
			select {
			case <-ctx.Done():
				return nil
			case ch = <-queue:
			}
			if ch == nil {
				return nil
			}

			// Wait for the frame to be complete
			var result frameResult
			select {
			case <-ctx.Done():
				return nil
			case result = <-ch:
			}

			if err := s.emit(result.payload); err != nil {
				return fmt.Errorf("failed to write frame %d: %w", result.id, err)
			}
			s.written.Add(uint64(result.raw))

			if callback != nil {
				callback(result.raw)
			}
		}
	}
}

func (s *writerImpl) WriteMany(ctx context.Context, next ChunkSource, options ...WriteManyOption) error {
	if s.frames.Load() != 0 || len(s.buf) > headerSize {
		return fmt.Errorf("%w: WriteMany requires a fresh writer", ErrConfiguration)
	}

	opts := writeManyOptions{concurrency: runtime.GOMAXPROCS(0)}
	for _, o := range options {
		if err := o(&opts); err != nil {
			return err // no wrap, these should be user-comprehensible
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency + 2) // producer and consumer
	// Add extra room in the queue, so we can keep throughput high even if frames finish out of order
	queue := make(chan chan frameResult, opts.concurrency*2)
	g.Go(s.writeManyProducer(gCtx, next, g, queue))
	g.Go(s.writeManyConsumer(gCtx, opts.writeCallback, queue))
	if err := g.Wait(); err != nil {
		return err
	}

	// Frames were emitted directly; Close only validates the size.
	s.buf = nil
	return nil
}
