package bitmap

import (
	"errors"
	"fmt"
	"image/png"
	"io"
)

// Encode packs src into a square bitmap and writes it as a PNG.
// PNG is lossless, so the cell grid round-trips bit-exact.
func Encode(w io.Writer, src []byte) error {
	if len(src) == 0 {
		return errors.New("cannot encode an empty stream as a bitmap")
	}
	if err := png.Encode(w, Pack(src)); err != nil {
		return fmt.Errorf("failed to encode bitmap: %w", err)
	}
	return nil
}

// Decode reads a PNG bitmap produced by Encode and recovers the stored
// bytes, subject to the truncation documented on Unpack.
func Decode(r io.Reader) ([]byte, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bitmap: %w", err)
	}
	return Unpack(img), nil
}
