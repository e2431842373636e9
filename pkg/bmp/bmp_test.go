package bmp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	xbmp "golang.org/x/image/bmp"

	"go-gblur/pkg/bmp/bmptest"
	"go-gblur/pkg/common"
)

func TestRowPadding(t *testing.T) {
	tests := []struct{ width, want int }{
		{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 0}, {5, 1}, {6, 2}, {7, 3},
	}
	for _, tt := range tests {
		if got := RowPadding(tt.width); got != tt.want {
			t.Errorf("RowPadding(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	data := bmptest.Gradient(5, 3)
	m, err := Decode(bytes.NewReader(data), 7)
	if err != nil {
		t.Fatal(err)
	}

	if m.Width() != 5 || m.Height() != 3 {
		t.Fatalf("size = %dx%d, want 5x3", m.Width(), m.Height())
	}
	if m.PixelOffset != bmptest.HeaderSize {
		t.Errorf("PixelOffset = %d, want %d", m.PixelOffset, bmptest.HeaderSize)
	}
	if diff := cmp.Diff(data[:bmptest.HeaderSize], m.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if m.Grid.Expansion != 3 || m.Grid.Rows() != 9 || m.Grid.Cols() != 11 {
		t.Errorf("grid geometry e=%d %dx%d, want e=3 9x11", m.Grid.Expansion, m.Grid.Rows(), m.Grid.Cols())
	}

	// Rows stay in file order; compare against an independent decoder,
	// which flips bottom-up files.
	ref, err := xbmp.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	for row := 0; row < 3; row++ {
		for x, p := range m.Grid.InteriorRow(row) {
			r, g, b, _ := ref.At(x, 2-row).RGBA()
			want := common.Pixel{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
			if p != want {
				t.Errorf("pixel (%d,%d) = %+v, want %+v", x, row, p, want)
			}
		}
	}

	// Border is zeroed until expanded.
	if p := m.Grid.At(0, 0); p != (common.Pixel{}) {
		t.Errorf("border pixel = %+v, want zero", p)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := bmptest.Uniform(4, 4, common.Pixel{R: 255})

	badMagic := append([]byte("XY"), valid[2:]...)
	smallOffset := append([]byte(nil), valid...)
	smallOffset[10] = 20

	// Header-only files whose fields claim far more data than present.
	hugeOffset := append([]byte(nil), valid[:bmptest.HeaderSize]...)
	binary.LittleEndian.PutUint32(hugeOffset[10:], 0xFFFFFFF0)
	hugeImage := append([]byte(nil), valid[:bmptest.HeaderSize]...)
	binary.LittleEndian.PutUint16(hugeImage[18:], 0xFFFF)
	binary.LittleEndian.PutUint16(hugeImage[22:], 0xFFFF)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrShortRead},
		{"one byte", []byte("B"), ErrShortRead},
		{"bad magic", badMagic, ErrInvalidFormat},
		{"truncated file header", valid[:10], ErrShortRead},
		{"offset inside header", smallOffset, ErrInvalidFormat},
		{"truncated info header", valid[:40], ErrShortRead},
		{"truncated pixels", valid[:len(valid)-1], ErrShortRead},
		{"offset beyond end of file", hugeOffset, ErrShortRead},
		{"dimensions beyond end of file", hugeImage, ErrShortRead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data), 7)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bmp"), 7)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open error = %v, want not exist", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, width := range []int{1, 2, 3, 4, 5, 17} {
		data := bmptest.Gradient(width, 4)
		m, err := Decode(bytes.NewReader(data), 5)
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := Encode(&buf, m); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(data, buf.Bytes()); diff != "" {
			t.Errorf("width %d: round trip mismatch (-want +got):\n%s", width, diff)
		}
	}
}

func TestEncodePadding(t *testing.T) {
	m, err := Decode(bytes.NewReader(bmptest.Uniform(5, 2, common.Pixel{R: 1, G: 2, B: 3})), 7)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatal(err)
	}
	out := buf.Bytes()
	if len(out) != bmptest.HeaderSize+2*16 {
		t.Fatalf("encoded %d bytes, want %d", len(out), bmptest.HeaderSize+2*16)
	}
	for row := 0; row < 2; row++ {
		line := out[bmptest.HeaderSize+row*16:][:16]
		if !bytes.Equal(line[:3], []byte{3, 2, 1}) {
			t.Errorf("row %d starts with %v, want BGR 3 2 1", row, line[:3])
		}
		if line[15] != 0 {
			t.Errorf("row %d padding = %d, want 0", row, line[15])
		}
	}
}

type limitedWriter struct{ n int }

func (w *limitedWriter) Write(p []byte) (int, error) {
	if len(p) > w.n {
		n := w.n
		w.n = 0
		return n, nil
	}
	w.n -= len(p)
	return len(p), nil
}

func TestEncodeShortWrite(t *testing.T) {
	m, err := Decode(bytes.NewReader(bmptest.Uniform(64, 64, common.Pixel{})), 3)
	if err != nil {
		t.Fatal(err)
	}
	err = Encode(&limitedWriter{n: 100}, m)
	if !errors.Is(err, ErrShortWrite) {
		t.Errorf("Encode error = %v, want ErrShortWrite", err)
	}
}

func TestDecodedImageMatchesStandardDecoder(t *testing.T) {
	// The independent decoder must accept what Encode produces.
	m, err := Decode(bytes.NewReader(bmptest.Gradient(6, 5)), 3)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatal(err)
	}
	cfg, err := xbmp.DecodeConfig(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 6 || cfg.Height != 5 {
		t.Errorf("decoded config %dx%d, want 6x5", cfg.Width, cfg.Height)
	}
}
