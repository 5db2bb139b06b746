package rasterstore

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap/zapcore"
)

/*
The first frame of a stream begins with the stream header:

	|`Original_Size`|
	|---------------|
	| 8 bytes       |

Original_Size

The byte length of the stored stream, represented as an 8 byte
__big-endian__ unsigned integer.  The header is present exactly once, at
offset 0 of frame 0, and is never counted as part of the stream's logical
bytes.  All frame bytes past `Original_Size + 8` are zero padding.
*/
type streamHeader struct {
	// OriginalSize is the byte length of the stored stream.
	OriginalSize uint64
}

// headerSize is the serialized size of the stream header.
const headerSize = 8

func (h *streamHeader) marshalBinaryInline(dst []byte) {
	binary.BigEndian.PutUint64(dst[0:], h.OriginalSize)
}

func (h *streamHeader) MarshalBinary() ([]byte, error) {
	dst := make([]byte, headerSize)
	h.marshalBinaryInline(dst)
	return dst, nil
}

func (h *streamHeader) UnmarshalBinary(p []byte) error {
	if len(p) < headerSize {
		return fmt.Errorf("%w: stream header needs %d bytes, have %d",
			ErrTruncatedInput, headerSize, len(p))
	}
	h.OriginalSize = binary.BigEndian.Uint64(p[0:])
	return nil
}

func (h *streamHeader) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("originalSize", h.OriginalSize)
	return nil
}
