// Package bmptest builds small 24-bit bitmap files for tests.
package bmptest

import (
	"encoding/binary"

	"go-gblur/pkg/common"
)

// HeaderSize is the size of the file and info headers written by Build.
const HeaderSize = 14 + 40

// Build returns a bottom-up 24-bit bitmap with a BITMAPINFOHEADER. pix is
// called with the column and the row in file order.
func Build(width, height int, pix func(x, row int) common.Pixel) []byte {
	stride := (width*3 + 3) &^ 3
	size := HeaderSize + stride*height
	b := make([]byte, size)

	b[0], b[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(b[2:], uint32(size))
	binary.LittleEndian.PutUint32(b[10:], HeaderSize)

	binary.LittleEndian.PutUint32(b[14:], 40)
	binary.LittleEndian.PutUint32(b[18:], uint32(width))
	binary.LittleEndian.PutUint32(b[22:], uint32(height))
	binary.LittleEndian.PutUint16(b[26:], 1)  // planes
	binary.LittleEndian.PutUint16(b[28:], 24) // bits per pixel
	binary.LittleEndian.PutUint32(b[34:], uint32(stride*height))
	binary.LittleEndian.PutUint32(b[38:], 2835)
	binary.LittleEndian.PutUint32(b[42:], 2835)

	for row := 0; row < height; row++ {
		off := HeaderSize + row*stride
		for x := 0; x < width; x++ {
			p := pix(x, row)
			b[off+3*x+0] = p.B
			b[off+3*x+1] = p.G
			b[off+3*x+2] = p.R
		}
	}
	return b
}

// Uniform returns a bitmap in which every pixel is p.
func Uniform(width, height int, p common.Pixel) []byte {
	return Build(width, height, func(int, int) common.Pixel { return p })
}

// Gradient returns a bitmap whose channels vary with position.
func Gradient(width, height int) []byte {
	return Build(width, height, func(x, row int) common.Pixel {
		return common.Pixel{
			R: uint8(x * 255 / max(width-1, 1)),
			G: uint8(row * 255 / max(height-1, 1)),
			B: uint8((x + row) * 7),
		}
	})
}
