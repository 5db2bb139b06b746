// Package framefile persists raster frame streams as a single seekable
// artifact.  Each frame payload is compressed independently with zstd and
// indexed by a frame table at the end of the file, so a stream can be
// decoded frame by frame without loading the whole artifact.
package framefile

import (
	"encoding/binary"
	"fmt"

	rasterstore "github.com/rastervault/raster-store-go"
)

const (
	/*
		The artifact consists of a fixed-size file header, one zstd frame per
		raster frame, and a frame table at the end of the file:

			|`File_Header`|`Frames`|`[Frame_Table_Entries]`|`Frame_Table_Footer`|
			|-------------|--------|-----------------------|--------------------|
			| 20 bytes    | n      | 4-8 bytes each        | 9 bytes            |

		The file header records the frame geometry, so the decoder can detect
		an artifact written with a different container shape.
	*/
	fileMagic uint32 = 0x6C3A9D42

	frameTableMagic uint32 = 0x1D7C55B1

	formatVersion uint32 = 1

	fileHeaderSize = 20

	frameTableFooterOffset = 9

	// maxStoredFrameSize bounds a single compressed frame accepted by the
	// decoder.  This is to prevent OOMs due to untrusted input.
	maxStoredFrameSize = 128 << 20
)

/*
The file header format is as follows:

	|`File_Magic`|`Version`|`Width`|`Height`|`Channels`|
	|------------|---------|-------|--------|----------|
	| 4 bytes    | 4 bytes | 4 b   | 4 b    | 4 bytes  |

All fields are little-endian unsigned 32-bit integers.
*/
type fileHeader struct {
	Version  uint32
	Geometry rasterstore.Geometry
}

func (h *fileHeader) marshalBinaryInline(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], fileMagic)
	binary.LittleEndian.PutUint32(dst[4:], h.Version)
	binary.LittleEndian.PutUint32(dst[8:], uint32(h.Geometry.Width))
	binary.LittleEndian.PutUint32(dst[12:], uint32(h.Geometry.Height))
	binary.LittleEndian.PutUint32(dst[16:], uint32(h.Geometry.Channels))
}

func (h *fileHeader) MarshalBinary() ([]byte, error) {
	dst := make([]byte, fileHeaderSize)
	h.marshalBinaryInline(dst)
	return dst, nil
}

func (h *fileHeader) UnmarshalBinary(p []byte) error {
	if len(p) != fileHeaderSize {
		return fmt.Errorf("file header length mismatch %d vs %d", len(p), fileHeaderSize)
	}
	magic := binary.LittleEndian.Uint32(p[0:])
	if magic != fileMagic {
		return fmt.Errorf("file magic mismatch %d vs %d", magic, fileMagic)
	}
	h.Version = binary.LittleEndian.Uint32(p[4:])
	if h.Version != formatVersion {
		return fmt.Errorf("unsupported format version %d", h.Version)
	}
	h.Geometry = rasterstore.Geometry{
		Width:    int(binary.LittleEndian.Uint32(p[8:])),
		Height:   int(binary.LittleEndian.Uint32(p[12:])),
		Channels: int(binary.LittleEndian.Uint32(p[16:])),
	}
	return nil
}

/*
A bitfield describing the format of the frame table.

	| Bit number | Field name      |
	| ---------- | ----------      |
	| 7          | `Checksum_Flag` |
	| 6-0        | `Reserved_Bits` |
*/
type frameTableDescriptor struct {
	// If the checksum flag is set, each frame table entry contains a 4 byte
	// checksum of the raw payload contained in its frame.
	ChecksumFlag bool
}

/*
The frame table footer format is as follows:

	|`Number_Of_Frames`|`Frame_Table_Descriptor`|`Frame_Table_Magic`|
	|------------------|------------------------|-------------------|
	| 4 bytes          | 1 byte                 | 4 bytes           |
*/
type frameTableFooter struct {
	// The number of stored frames in the artifact.
	NumberOfFrames uint32
	// A bitfield describing the format of the frame table.
	FrameTableDescriptor frameTableDescriptor
	// Value : 0x1D7C55B1.
	FrameTableMagic uint32
}

func (f *frameTableFooter) marshalBinaryInline(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], f.NumberOfFrames)
	if f.FrameTableDescriptor.ChecksumFlag {
		dst[4] |= 1 << 7
	}
	binary.LittleEndian.PutUint32(dst[5:], frameTableMagic)
}

func (f *frameTableFooter) MarshalBinary() ([]byte, error) {
	dst := make([]byte, frameTableFooterOffset)
	f.marshalBinaryInline(dst)
	return dst, nil
}

func (f *frameTableFooter) UnmarshalBinary(p []byte) error {
	if len(p) != frameTableFooterOffset {
		return fmt.Errorf("footer length mismatch %d vs %d", len(p), frameTableFooterOffset)
	}
	f.NumberOfFrames = binary.LittleEndian.Uint32(p[0:])
	f.FrameTableDescriptor.ChecksumFlag = (p[4] & (1 << 7)) > 0
	f.FrameTableMagic = binary.LittleEndian.Uint32(p[5:])
	if f.FrameTableMagic != frameTableMagic {
		return fmt.Errorf("footer magic mismatch %d vs %d", f.FrameTableMagic, frameTableMagic)
	}
	return nil
}

/*
`Frame_Table_Entries` consists of `Number_Of_Frames` entries of the
following form, in sequence:

	|`Stored_Size`|`[Checksum]`|
	|-------------|------------|
	| 4 bytes     | 4 bytes    |

The raw size is not stored: every frame of a stream decompresses to
exactly the frame capacity recorded in the file header.
*/
type frameTableEntry struct {
	// The compressed size of the frame.  The cumulative sum of the
	// `Stored_Size` fields of frames `0` to `i` gives the offset in the
	// artifact of frame `i+1`.
	StoredSize uint32
	// Only present if `Checksum_Flag` is set in the descriptor.  Value: the
	// least significant 32 bits of the XXH64 digest of the raw payload.
	Checksum uint32
}

func (e *frameTableEntry) marshalBinaryInline(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], e.StoredSize)
	binary.LittleEndian.PutUint32(dst[4:], e.Checksum)
}

func (e *frameTableEntry) MarshalBinary() ([]byte, error) {
	dst := make([]byte, 8)
	e.marshalBinaryInline(dst)
	return dst, nil
}

func (e *frameTableEntry) UnmarshalBinary(p []byte) error {
	if len(p) < 4 {
		return fmt.Errorf("entry length mismatch %d vs %d", len(p), 4)
	}
	e.StoredSize = binary.LittleEndian.Uint32(p[0:])
	if len(p) >= 8 {
		e.Checksum = binary.LittleEndian.Uint32(p[4:])
	}
	return nil
}
