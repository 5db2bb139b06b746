package rasterstore

import "fmt"

// ReconstructAll reassembles the original byte stream from ordered frame
// payloads produced by FrameAll (or an equivalent framer).
//
// Fails with ErrGeometryMismatch when any frame's length differs from the
// capacity implied by geo, and with ErrTruncatedInput when the frames do
// not carry as many bytes as the stream header declares.
func ReconstructAll(frames [][]byte, geo Geometry) ([]byte, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}

	capacity := geo.FrameCapacity()
	buf := make([]byte, 0, len(frames)*capacity)
	for i, frame := range frames {
		if len(frame) != capacity {
			return nil, fmt.Errorf("%w: frame %d has %d bytes, capacity is %d",
				ErrGeometryMismatch, i, len(frame), capacity)
		}
		buf = append(buf, frame...)
	}

	var h streamHeader
	if err := h.UnmarshalBinary(buf); err != nil {
		return nil, err
	}

	payload := buf[headerSize:]
	if uint64(len(payload)) < h.OriginalSize {
		return nil, fmt.Errorf("%w: header declares %d bytes, frames carry %d",
			ErrTruncatedInput, h.OriginalSize, len(payload))
	}
	return payload[:h.OriginalSize], nil
}
