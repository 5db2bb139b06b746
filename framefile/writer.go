package framefile

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	rasterstore "github.com/rastervault/raster-store-go"
	"github.com/rastervault/raster-store-go/env"
)

type writerImpl struct {
	w   io.Writer
	enc *zstd.Encoder
	geo rasterstore.Geometry

	entries []frameTableEntry
	frames  *atomic.Int64
	bytes   *atomic.Uint64

	o writerOptions

	once *sync.Once
}

var (
	_ env.FrameSink = (*writerImpl)(nil)
	_ io.Closer     = (*writerImpl)(nil)
)

type Writer interface {
	env.FrameSink

	// Close writes the frame table and releases occupied memory.
	//
	// Caller is still responsible to Close the underlying writer.
	Close() (err error)

	// FramesWritten returns the number of frames persisted so far.  Safe
	// for concurrent use.
	FramesWritten() int64

	// BytesWritten returns the number of raw payload bytes persisted so
	// far.  Safe for concurrent use.
	BytesWritten() uint64
}

// NewWriter wraps w into a frame artifact writer for the given geometry.
// The file header is written immediately.
func NewWriter(w io.Writer, geo rasterstore.Geometry, opts ...WOption) (Writer, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}

	sw := writerImpl{
		w:      w,
		geo:    geo,
		frames: atomic.NewInt64(0),
		bytes:  atomic.NewUint64(0),
		once:   &sync.Once{},
	}

	sw.o.setDefault()
	for _, o := range opts {
		err := o(&sw.o)
		if err != nil {
			return nil, err
		}
	}

	var err error
	sw.enc, err = zstd.NewWriter(nil, sw.o.zstdEOpts...)
	if err != nil {
		return nil, err
	}

	hdr := fileHeader{Version: formatVersion, Geometry: geo}
	hdrBytes, err := hdr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	n, err := w.Write(hdrBytes)
	if err != nil {
		return nil, err
	}
	if n != len(hdrBytes) {
		return nil, fmt.Errorf("partial header write: %d out of %d", n, len(hdrBytes))
	}

	return &sw, nil
}

func (s *writerImpl) WriteFrame(p []byte) (int, error) {
	if len(p) != s.geo.FrameCapacity() {
		return 0, fmt.Errorf("%w: frame payload has %d bytes, capacity is %d",
			rasterstore.ErrGeometryMismatch, len(p), s.geo.FrameCapacity())
	}

	dst := s.enc.EncodeAll(p, nil)

	if len(dst) > math.MaxUint32 {
		return 0, fmt.Errorf("stored frame size too big: %d > %d", len(dst), math.MaxUint32)
	}

	entry := frameTableEntry{
		StoredSize: uint32(len(dst)),
		Checksum:   uint32((xxhash.Sum64(p) << 32) >> 32),
	}

	n, err := s.w.Write(dst)
	if err != nil {
		return 0, err
	}
	if n != len(dst) {
		return 0, fmt.Errorf("partial write: %d out of %d", n, len(dst))
	}

	s.o.logger.Debug("appending frame", zap.Object("frame", &env.FrameInfo{
		ID:         s.frames.Load(),
		RawSize:    uint32(len(p)),
		StoredSize: entry.StoredSize,
		Checksum:   entry.Checksum,
	}))
	s.entries = append(s.entries, entry)
	s.frames.Inc()
	s.bytes.Add(uint64(len(p)))

	return len(p), nil
}

func (s *writerImpl) Close() (err error) {
	s.once.Do(func() {
		err = multierr.Append(err, s.writeFrameTable())
	})

	s.entries = nil
	err = multierr.Append(err, s.enc.Close())
	return
}

func (s *writerImpl) FramesWritten() int64 {
	return s.frames.Load()
}

func (s *writerImpl) BytesWritten() uint64 {
	return s.bytes.Load()
}

func (s *writerImpl) writeFrameTable() error {
	if len(s.entries) > math.MaxUint32 {
		return fmt.Errorf("number of frames for artifact: %d > %d",
			len(s.entries), math.MaxUint32)
	}

	table := make([]byte, len(s.entries)*8+frameTableFooterOffset)
	for i, e := range s.entries {
		e.marshalBinaryInline(table[i*8 : (i+1)*8])
	}

	footer := frameTableFooter{
		NumberOfFrames: uint32(len(s.entries)),
		FrameTableDescriptor: frameTableDescriptor{
			ChecksumFlag: true,
		},
		FrameTableMagic: frameTableMagic,
	}

	footer.marshalBinaryInline(table[len(s.entries)*8 : len(s.entries)*8+frameTableFooterOffset])

	_, err := s.w.Write(table)
	return err
}
