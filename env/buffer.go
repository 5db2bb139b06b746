package env

import "io"

// Buffer is an in-memory FrameSink and FrameSource.  It is useful for
// tests and for pipelines that keep the raster artifact in memory instead
// of persisting it.
type Buffer struct {
	frames [][]byte
	next   int
}

var (
	_ FrameSink   = (*Buffer)(nil)
	_ FrameSource = (*Buffer)(nil)
)

func (b *Buffer) WriteFrame(p []byte) (int, error) {
	frame := make([]byte, len(p))
	copy(frame, p)
	b.frames = append(b.frames, frame)
	return len(p), nil
}

func (b *Buffer) NextFrame() ([]byte, error) {
	if b.next >= len(b.frames) {
		return nil, io.EOF
	}
	frame := b.frames[b.next]
	b.next++
	return frame, nil
}

func (b *Buffer) NumFrames() int64 {
	return int64(len(b.frames))
}

// Rewind resets the read cursor so the buffer can be decoded again.
func (b *Buffer) Rewind() {
	b.next = 0
}

// Frames returns the stored frame payloads in order.  The returned slices
// are not copied; callers must not mutate them.
func (b *Buffer) Frames() [][]byte {
	return b.frames
}
