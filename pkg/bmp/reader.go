// Package bmp reads and writes the subset of uncompressed 24-bit bitmap
// files needed by the blur pipeline. Only the signature, the pixel-data
// offset and the image dimensions are interpreted; every other header byte
// is carried through unchanged.
package bmp

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"go-gblur/pkg/common"
)

// Header field layout.
const (
	fileHeaderSize    = 14
	pixelOffsetOffset = 10
	widthOffset       = 18
	heightOffset      = 22
	dimensionSize     = 2

	// minHeaderSize is the smallest header that contains every field read.
	minHeaderSize = heightOffset + dimensionSize

	bytesPerPixel = 3
)

var (
	// ErrInvalidFormat is returned when the input is not a bitmap this
	// package can handle.
	ErrInvalidFormat = errors.New("bmp: invalid file type")
	// ErrShortRead is returned when the input ends before a required field
	// or pixel row.
	ErrShortRead = errors.New("bmp: short read")
)

// Image is a decoded bitmap: the raw header followed by pixel data held in
// an expanded grid.
type Image struct {
	// Header holds bytes [0, PixelOffset) of the source file.
	Header      []byte
	PixelOffset int
	Grid        *common.Grid
}

// Width returns the image width in pixels.
func (m *Image) Width() int { return m.Grid.Width }

// Height returns the image height in pixels.
func (m *Image) Height() int { return m.Grid.Height }

// RowPadding returns the number of zero bytes that follow each pixel row of
// a bitmap with the given width.
func RowPadding(width int) int {
	return (4 - (width*bytesPerPixel)%4) % 4
}

// Open reads the bitmap at path. See Decode.
func Open(path string, radius int) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, radius)
}

// Decode reads a bitmap from r into a grid with radius/2 border rings per
// side. Rows are stored in file order; the border is left zeroed.
func Decode(r io.Reader, radius int) (*Image, error) {
	if radius < 1 {
		return nil, fmt.Errorf("bmp: invalid radius %d", radius)
	}
	br := bufio.NewReader(r)

	var fh [fileHeaderSize]byte
	if err := readFull(br, fh[:2], "signature"); err != nil {
		return nil, err
	}
	if fh[0] != 'B' || fh[1] != 'M' {
		return nil, fmt.Errorf("%w: signature %q", ErrInvalidFormat, fh[:2])
	}
	if err := readFull(br, fh[2:], "file header"); err != nil {
		return nil, err
	}

	offset := int(binary.LittleEndian.Uint32(fh[pixelOffsetOffset:]))
	if offset < minHeaderSize {
		return nil, fmt.Errorf("%w: pixel data offset %d inside header", ErrInvalidFormat, offset)
	}

	// Buffers grow only as bytes arrive, so sizes claimed by a truncated
	// header cannot force a large allocation.
	var hb bytes.Buffer
	hb.Write(fh[:])
	if err := copyFull(&hb, br, int64(offset-fileHeaderSize), "info header"); err != nil {
		return nil, err
	}
	header := hb.Bytes()

	width := int(binary.LittleEndian.Uint16(header[widthOffset:]))
	height := int(binary.LittleEndian.Uint16(header[heightOffset:]))
	stride := width*bytesPerPixel + RowPadding(width)

	var pb bytes.Buffer
	if err := copyFull(&pb, br, int64(height*stride), "pixel data"); err != nil {
		return nil, err
	}
	pix := pb.Bytes()

	g := common.NewGrid(width, height, radius/2)
	for y := 0; y < height; y++ {
		row := pix[y*stride:]
		dst := g.InteriorRow(y)
		for x := range dst {
			b := row[x*bytesPerPixel:]
			dst[x] = common.Pixel{R: b[2], G: b[1], B: b[0]}
		}
	}

	return &Image{Header: header, PixelOffset: offset, Grid: g}, nil
}

// copyFull appends exactly n bytes from r to buf.
func copyFull(buf *bytes.Buffer, r io.Reader, n int64, what string) error {
	got, err := io.CopyN(buf, io.LimitReader(r, n), n)
	if got == n {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: got %d of %d bytes", ErrShortRead, what, got, n)
	}
	return fmt.Errorf("bmp: reading %s: %w", what, err)
}

func readFull(r io.Reader, buf []byte, what string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %s", ErrShortRead, what)
		}
		return fmt.Errorf("bmp: reading %s: %w", what, err)
	}
	return nil
}
