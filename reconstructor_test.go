package rasterstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructAllRoundTrip(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{9, 16, 64, 1 << 12} {
		for _, size := range []int{0, 1, 7, 8, 9, 100, 5000} {
			geo := testGeometry(capacity)
			payload := testPayload(t, size)

			frames, err := FrameAll(payload, geo)
			require.NoError(t, err)

			restored, err := ReconstructAll(frames, geo)
			require.NoError(t, err)
			assert.Equal(t, payload, restored, "capacity: %d, size: %d", capacity, size)
		}
	}
}

func TestReconstructAllTruncated(t *testing.T) {
	t.Parallel()

	geo := testGeometry(16)
	frames, err := FrameAll(testPayload(t, 100), geo)
	require.NoError(t, err)

	// Dropping the last frame leaves fewer bytes than the header declares.
	_, err = ReconstructAll(frames[:len(frames)-1], geo)
	assert.ErrorIs(t, err, ErrTruncatedInput)

	// No frames at all: not even the header is available.
	_, err = ReconstructAll(nil, geo)
	assert.ErrorIs(t, err, ErrTruncatedInput)
}

func TestReconstructAllGeometryMismatch(t *testing.T) {
	t.Parallel()

	geo := testGeometry(16)
	frames, err := FrameAll(testPayload(t, 30), geo)
	require.NoError(t, err)

	frames[1] = frames[1][:15]
	_, err = ReconstructAll(frames, geo)
	assert.ErrorIs(t, err, ErrGeometryMismatch)
}

func TestReconstructAllDiscardsTrailingBytes(t *testing.T) {
	t.Parallel()

	geo := testGeometry(16)
	payload := []byte("ABCDEFGHIJ")
	frames, err := FrameAll(payload, geo)
	require.NoError(t, err)

	// Garbage in the padding region must not leak into the result.
	for i := 2; i < 16; i++ {
		frames[1][i] = 0xAA
	}
	restored, err := ReconstructAll(frames, geo)
	require.NoError(t, err)
	assert.Equal(t, payload, restored)
}
