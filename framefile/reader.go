package framefile

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/google/btree"
	"go.uber.org/zap"

	rasterstore "github.com/rastervault/raster-store-go"
	"github.com/rastervault/raster-store-go/env"
)

type readerImpl struct {
	rs  io.ReadSeeker
	dec *zstd.Decoder
	geo rasterstore.Geometry

	index     *btree.BTree
	checksums bool
	numFrames int64

	nextID int64

	o readerOptions
}

var (
	_ env.FrameSource = (*readerImpl)(nil)
	_ io.Closer       = (*readerImpl)(nil)
)

type Reader interface {
	env.FrameSource

	// Geometry returns the frame geometry recorded in the artifact.
	Geometry() rasterstore.Geometry

	// Close releases the frame index and the decoder.
	//
	// Caller is still responsible to Close the underlying reader.
	Close() error
}

// NewReader opens a frame artifact: it validates the file header, loads
// the frame table from the end of the file and indexes it, then yields raw
// frame payloads in original order through NextFrame.
func NewReader(rs io.ReadSeeker, opts ...ROption) (Reader, error) {
	sr := readerImpl{
		rs: rs,
	}

	sr.o.setDefault()
	for _, o := range opts {
		err := o(&sr.o)
		if err != nil {
			return nil, err
		}
	}

	var err error
	sr.dec, err = zstd.NewReader(nil, sr.o.zstdDOpts...)
	if err != nil {
		return nil, err
	}

	if err := sr.readFileHeader(); err != nil {
		return nil, err
	}
	if err := sr.readFrameTable(); err != nil {
		return nil, err
	}

	sr.o.logger.Debug("artifact opened",
		zap.Object("geometry", sr.geo), zap.Int64("frames", sr.numFrames))
	return &sr, nil
}

func (s *readerImpl) Geometry() rasterstore.Geometry {
	return s.geo
}

func (s *readerImpl) NumFrames() int64 {
	return s.numFrames
}

func (s *readerImpl) NextFrame() ([]byte, error) {
	if s.nextID >= s.numFrames {
		return nil, io.EOF
	}

	item := s.index.Get(frameLocation{id: s.nextID})
	if item == nil {
		return nil, fmt.Errorf("missing frame table entry for frame %d", s.nextID)
	}
	loc := item.(frameLocation)

	src := make([]byte, loc.storedSize)
	if _, err := s.rs.Seek(int64(loc.offset), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(s.rs, src); err != nil {
		return nil, fmt.Errorf("failed to read stored frame at: %d, %w", loc.offset, err)
	}

	decompressed, err := s.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress frame at: %d, %w", loc.offset, err)
	}

	if s.checksums {
		checksum := uint32((xxhash.Sum64(decompressed) << 32) >> 32)
		if loc.checksum != checksum {
			return nil, fmt.Errorf("checksum verification failed at frame %d: expected: %d, actual: %d",
				loc.id, loc.checksum, checksum)
		}
	}

	if len(decompressed) != s.geo.FrameCapacity() {
		return nil, fmt.Errorf("%w: stored frame %d inflates to %d bytes, capacity is %d",
			rasterstore.ErrGeometryMismatch, loc.id, len(decompressed), s.geo.FrameCapacity())
	}

	s.nextID++
	return decompressed, nil
}

func (s *readerImpl) Close() error {
	s.index.Clear(false)
	s.dec.Close()
	return nil
}

type frameLocation struct {
	id int64

	// offset is the position of the stored frame within the artifact.
	offset     uint64
	storedSize uint32

	checksum uint32
}

func (l frameLocation) Less(than btree.Item) bool {
	return l.id < than.(frameLocation).id
}

func (s *readerImpl) readFileHeader() error {
	if _, err := s.rs.Seek(0, io.SeekStart); err != nil {
		return err
	}

	buf := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(s.rs, buf); err != nil {
		return err
	}

	hdr := fileHeader{}
	if err := hdr.UnmarshalBinary(buf); err != nil {
		return err
	}
	if err := hdr.Geometry.Validate(); err != nil {
		return err
	}

	s.geo = hdr.Geometry
	return nil
}

func (s *readerImpl) readFrameTable() error {
	if _, err := s.rs.Seek(-frameTableFooterOffset, io.SeekEnd); err != nil {
		return err
	}

	buf := make([]byte, frameTableFooterOffset)
	if _, err := io.ReadFull(s.rs, buf); err != nil {
		return err
	}

	footer := frameTableFooter{}
	if err := footer.UnmarshalBinary(buf); err != nil {
		return err
	}

	s.checksums = footer.FrameTableDescriptor.ChecksumFlag

	entrySize := int64(4)
	if s.checksums {
		entrySize += 4
	}

	tableOffset := frameTableFooterOffset + entrySize*int64(footer.NumberOfFrames)
	if _, err := s.rs.Seek(-tableOffset, io.SeekEnd); err != nil {
		return err
	}

	buf = make([]byte, tableOffset-frameTableFooterOffset)
	if _, err := io.ReadFull(s.rs, buf); err != nil {
		return err
	}

	return s.indexFrameTableEntries(buf, uint64(entrySize))
}

func (s *readerImpl) indexFrameTableEntries(p []byte, entrySize uint64) error {
	t := btree.New(16)
	entry := frameTableEntry{}
	var tableOffset uint64
	offset := uint64(fileHeaderSize)
	var id int64
	for tableOffset < uint64(len(p)) {
		if err := entry.UnmarshalBinary(p[tableOffset : tableOffset+entrySize]); err != nil {
			return err
		}
		if entry.StoredSize > maxStoredFrameSize {
			return fmt.Errorf("stored frame %d too big: %d > %d", id, entry.StoredSize, maxStoredFrameSize)
		}
		t.ReplaceOrInsert(frameLocation{
			id:         id,
			offset:     offset,
			storedSize: entry.StoredSize,
			checksum:   entry.Checksum,
		})
		offset += uint64(entry.StoredSize)
		tableOffset += entrySize
		id++
	}

	s.index = t
	s.numFrames = id
	return nil
}
