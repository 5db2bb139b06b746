// Package rasterstore implements the framing protocol that stores an
// arbitrary byte stream inside a sequence of fixed-capacity raster frames
// such that the original stream can be reconstructed byte-for-byte.
//
// Frame 0 starts with an 8-byte big-endian stream header holding the
// original size; the final frame is zero-padded up to the fixed frame
// capacity.  How frames are persisted is left to an injected
// env.FrameSink / env.FrameSource pair.
package rasterstore

// FrameAll splits src into ordered fixed-capacity frame payloads.
//
// Every frame except possibly the last is completely filled; the last is
// right-padded with zero bytes up to the frame capacity.  An empty src
// still yields exactly one fully padded frame holding only the stream
// header.
func FrameAll(src []byte, geo Geometry) ([][]byte, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}

	n := geo.NumFrames(uint64(len(src)))
	frames := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		frames = append(frames, frameAt(src, geo, i))
	}
	return frames, nil
}

// frameAt builds frame i of src.  The source byte range of a frame depends
// only on its index and the fixed capacity, so frames can be computed in
// any order.
func frameAt(src []byte, geo Geometry, i uint64) []byte {
	capacity := uint64(geo.FrameCapacity())

	frame := make([]byte, capacity)
	dst := frame
	var start uint64
	if i == 0 {
		h := streamHeader{OriginalSize: uint64(len(src))}
		h.marshalBinaryInline(frame)
		dst = frame[headerSize:]
	} else {
		start = i*capacity - headerSize
	}

	if start < uint64(len(src)) {
		copy(dst, src[start:])
	}
	return frame
}
