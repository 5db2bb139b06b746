package rasterstore

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGeometry(capacity int) Geometry {
	return Geometry{Width: capacity, Height: 1, Channels: 1}
}

func testPayload(t testing.TB, size int) []byte {
	t.Helper()

	payload := make([]byte, size)
	_, err := rand.New(rand.NewSource(42)).Read(payload)
	require.NoError(t, err)
	return payload
}

func TestFrameAllEmptyStream(t *testing.T) {
	t.Parallel()

	frames, err := FrameAll(nil, testGeometry(16))
	require.NoError(t, err)

	// One frame: 8 zero header bytes followed by 8 zero padding bytes.
	require.Len(t, frames, 1)
	assert.Equal(t, make([]byte, 16), frames[0])
}

func TestFrameAllTwoFrames(t *testing.T) {
	t.Parallel()

	frames, err := FrameAll([]byte("ABCDEFGHIJ"), testGeometry(16))
	require.NoError(t, err)
	require.Len(t, frames, 2)

	// Frame 0: header declaring 10 bytes, then the first 8 data bytes.
	assert.Equal(t, append([]byte{0, 0, 0, 0, 0, 0, 0, 0x0A}, []byte("ABCDEFGH")...), frames[0])
	// Frame 1: the remaining 2 data bytes plus 14 bytes of zero padding.
	assert.Equal(t, append([]byte("IJ"), make([]byte, 14)...), frames[1])
}

func TestFrameAllFrameCount(t *testing.T) {
	t.Parallel()

	for _, tab := range []struct {
		capacity int
		size     int
		frames   int
	}{
		{capacity: 16, size: 0, frames: 1},
		{capacity: 16, size: 7, frames: 1},
		{capacity: 16, size: 8, frames: 1},
		{capacity: 16, size: 9, frames: 2},
		{capacity: 16, size: 24, frames: 2},
		{capacity: 16, size: 25, frames: 3},
		{capacity: 9, size: 1, frames: 1},
		{capacity: 9, size: 2, frames: 2},
		{capacity: 1 << 10, size: 10_000, frames: 10},
	} {
		geo := testGeometry(tab.capacity)
		frames, err := FrameAll(testPayload(t, tab.size), geo)
		require.NoError(t, err)
		assert.Len(t, frames, tab.frames, "capacity: %d, size: %d", tab.capacity, tab.size)
		assert.Equal(t, uint64(tab.frames), geo.NumFrames(uint64(tab.size)))

		// Every frame, the padded last one included, is exactly capacity-sized.
		for i, frame := range frames {
			assert.Len(t, frame, tab.capacity, "frame: %d", i)
		}
	}
}

func TestFrameAllHeaderFidelity(t *testing.T) {
	t.Parallel()

	const capacity = 64
	for _, size := range []int{0, 1, capacity - 9, capacity - 8, capacity - 7, 10_000_000} {
		frames, err := FrameAll(testPayload(t, size), testGeometry(capacity))
		require.NoError(t, err)
		assert.Equal(t, uint64(size), binary.BigEndian.Uint64(frames[0][:8]), "size: %d", size)
	}
}

func TestFrameAllRejectsBadGeometry(t *testing.T) {
	t.Parallel()

	for _, geo := range []Geometry{
		{Width: 0, Height: 1, Channels: 1},
		{Width: 1, Height: -1, Channels: 1},
		{Width: 2, Height: 2, Channels: 2}, // capacity == header size
		{Width: 1, Height: 1, Channels: 1},
	} {
		_, err := FrameAll([]byte("data"), geo)
		assert.ErrorIs(t, err, ErrConfiguration, "geometry: %+v", geo)
	}
}

func TestFrameAllIdempotent(t *testing.T) {
	t.Parallel()

	geo := testGeometry(48)
	payload := testPayload(t, 1000)

	frames, err := FrameAll(payload, geo)
	require.NoError(t, err)

	restored, err := ReconstructAll(frames, geo)
	require.NoError(t, err)

	again, err := FrameAll(restored, geo)
	require.NoError(t, err)

	require.Equal(t, len(frames), len(again))
	for i := range frames {
		assert.True(t, bytes.Equal(frames[i], again[i]), "frame: %d", i)
	}
}
