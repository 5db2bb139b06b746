package env

import (
	"go.uber.org/zap/zapcore"
)

// FrameInfo is the per-frame metadata view used for logging and frame
// table bookkeeping.
type FrameInfo struct {
	// ID is the sequence number of the frame in the stream.
	ID int64

	// RawSize is the payload size before artifact compression.  It equals
	// the frame capacity for every frame of a stream.
	RawSize uint32
	// StoredSize is the size of the frame as persisted in the artifact.
	StoredSize uint32

	// Checksum is the lower 32 bits of the XXH64 hash of the raw payload.
	Checksum uint32
}

func (i *FrameInfo) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("ID", i.ID)
	enc.AddUint32("RawSize", i.RawSize)
	enc.AddUint32("StoredSize", i.StoredSize)
	enc.AddUint32("Checksum", i.Checksum)

	return nil
}
