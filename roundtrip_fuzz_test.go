//go:build go1.18
// +build go1.18

package rasterstore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte{}, uint8(3), uint8(3), uint8(1))
	f.Add([]byte("ABCDEFGHIJ"), uint8(4), uint8(2), uint8(2))
	f.Add([]byte{0x00, 0xFF, 0x00}, uint8(64), uint8(48), uint8(3))

	f.Fuzz(func(t *testing.T, data []byte, width, height, channels uint8) {
		geo := Geometry{Width: int(width), Height: int(height), Channels: int(channels)}

		frames, err := FrameAll(data, geo)
		if err != nil {
			assert.ErrorIs(t, err, ErrConfiguration)
			return
		}

		assert.Equal(t, uint64(len(frames)), geo.NumFrames(uint64(len(data))))
		for _, frame := range frames {
			assert.Equal(t, geo.FrameCapacity(), len(frame))
		}

		restored, err := ReconstructAll(frames, geo)
		assert.NoError(t, err)
		assert.True(t, bytes.Equal(data, restored))
	})
}
