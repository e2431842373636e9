package bmp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ErrShortWrite is returned when the destination accepts fewer bytes than
// were written.
var ErrShortWrite = errors.New("bmp: short write")

// Encode writes m to w: the original header unchanged, then every interior
// row in file order as blue, green, red bytes followed by zero padding to a
// 4-byte boundary.
func Encode(w io.Writer, m *Image) error {
	bw := bufio.NewWriter(w)

	if err := writeFull(bw, m.Header, "header"); err != nil {
		return err
	}

	width := m.Width()
	row := make([]byte, width*bytesPerPixel+RowPadding(width))
	for y := 0; y < m.Height(); y++ {
		for x, p := range m.Grid.InteriorRow(y) {
			b := row[x*bytesPerPixel:]
			b[0], b[1], b[2] = p.B, p.G, p.R
		}
		if err := writeFull(bw, row, fmt.Sprintf("pixel row %d", y)); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return wrapWriteErr(err, "flush")
	}
	return nil
}

func writeFull(w io.Writer, buf []byte, what string) error {
	n, err := w.Write(buf)
	if err != nil {
		return wrapWriteErr(err, what)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: %s: wrote %d of %d bytes", ErrShortWrite, what, n, len(buf))
	}
	return nil
}

func wrapWriteErr(err error, what string) error {
	if errors.Is(err, io.ErrShortWrite) {
		return fmt.Errorf("%w: %s", ErrShortWrite, what)
	}
	return fmt.Errorf("bmp: writing %s: %w", what, err)
}
