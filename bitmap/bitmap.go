// Package bitmap stores a byte stream as a single square bitmap carrying
// one bit per cell.  Unlike the multi-frame format, no length header is
// embedded: the stored size is recovered only by truncating the cell grid
// to whole bytes, which bounds recovery to byte granularity (see Unpack).
package bitmap

import (
	"image"
	"math"
)

// Side returns the side of the smallest square holding totalBits cells.
func Side(totalBits int) int {
	if totalBits <= 0 {
		return 0
	}
	side := int(math.Sqrt(float64(totalBits)))
	for side*side < totalBits {
		side++
	}
	return side
}

// Pack expands src into bits, most significant bit first, and lays them
// row-major into the smallest square grayscale image.  Cells past the
// last data bit are zero.  A one bit is rendered as full intensity (0xFF),
// a zero bit as 0x00.
func Pack(src []byte) *image.Gray {
	totalBits := len(src) * 8
	side := Side(totalBits)

	img := image.NewGray(image.Rect(0, 0, side, side))
	for i := 0; i < totalBits; i++ {
		if src[i/8]&(1<<(7-i%8)) != 0 {
			img.Pix[i] = 0xFF
		}
	}
	return img
}

// Unpack reads cells row-major, mapping any non-zero intensity to a one
// bit, groups bits into bytes most significant bit first, and discards a
// final group of fewer than 8 bits.
//
// This truncation is the scheme's only length recovery and it is lossy at
// the padding boundary: when the square holds 8 or more padding bits, the
// padding forms whole zero bytes that are indistinguishable from stored
// data, and the recovered stream gains trailing zero bytes the original
// never had.
func Unpack(img image.Image) []byte {
	bounds := img.Bounds()

	data := make([]byte, 0, bounds.Dx()*bounds.Dy()/8)
	var cur byte
	var nbits uint
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()

			cur <<= 1
			if r|g|b > 0 {
				cur |= 1
			}
			nbits++
			if nbits == 8 {
				data = append(data, cur)
				cur, nbits = 0, 0
			}
		}
	}
	return data
}
