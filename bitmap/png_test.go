package bitmap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPNGRoundTrip(t *testing.T) {
	t.Parallel()

	payload := []byte("raster payload round trip")

	var artifact bytes.Buffer
	require.NoError(t, Encode(&artifact, payload))

	restored, err := Decode(&artifact)
	require.NoError(t, err)

	// 200 bits pad to a 15x15 square: 25 spare bits, so truncation keeps
	// the original bytes plus whole-byte padding.
	assert.Equal(t, payload, restored[:len(payload)])
	for _, b := range restored[len(payload):] {
		assert.Equal(t, byte(0), b)
	}
}

func TestPNGEncodeEmpty(t *testing.T) {
	t.Parallel()

	var artifact bytes.Buffer
	assert.Error(t, Encode(&artifact, nil))
}

func TestPNGDecodeGarbage(t *testing.T) {
	t.Parallel()

	_, err := Decode(bytes.NewReader([]byte("not a png")))
	assert.Error(t, err)
}
