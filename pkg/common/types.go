package common

import (
	"time"
)

// Pixel is one 24-bit color value. Channels are kept in RGB order in memory
// regardless of the on-disk byte order.
type Pixel struct {
	R, G, B uint8
}

// Grid is a row-major pixel buffer holding an image surrounded by a border
// of Expansion pixels on every side. Row 0 is the first row of the border
// above the image.
type Grid struct {
	Width     int // interior width
	Height    int // interior height
	Expansion int // border rings per side

	stride int
	pix    []Pixel
}

// NewGrid allocates a zeroed grid for a width×height image with e border
// rings per side.
func NewGrid(width, height, e int) *Grid {
	if width < 0 || height < 0 || e < 0 {
		panic("common: negative grid dimension")
	}
	stride := width + 2*e
	return &Grid{
		Width:     width,
		Height:    height,
		Expansion: e,
		stride:    stride,
		pix:       make([]Pixel, stride*(height+2*e)),
	}
}

// Rows returns the number of rows including the border.
func (g *Grid) Rows() int { return g.Height + 2*g.Expansion }

// Cols returns the number of columns including the border.
func (g *Grid) Cols() int { return g.stride }

// At returns the pixel at row, col of the expanded grid.
func (g *Grid) At(row, col int) Pixel {
	return g.pix[row*g.stride+col]
}

// Set stores p at row, col of the expanded grid.
func (g *Grid) Set(row, col int, p Pixel) {
	g.pix[row*g.stride+col] = p
}

// Row returns the full expanded row as a slice sharing the grid's storage.
func (g *Grid) Row(row int) []Pixel {
	return g.pix[row*g.stride : (row+1)*g.stride]
}

// InteriorRow returns the pixels of interior row y (0-based, file order).
func (g *Grid) InteriorRow(y int) []Pixel {
	r := g.Row(y + g.Expansion)
	return r[g.Expansion : g.Expansion+g.Width]
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	c := *g
	c.pix = make([]Pixel, len(g.pix))
	copy(c.pix, g.pix)
	return &c
}

// CopyFrom overwrites g's pixels with src's. Both grids must have the same
// geometry.
func (g *Grid) CopyFrom(src *Grid) {
	copy(g.pix, src.pix)
}

// JobMessage asks a worker to blur one bitmap file.
type JobMessage struct {
	JobID      string    `json:"job_id"`
	InputPath  string    `json:"input_path"`
	OutputPath string    `json:"output_path"`
	Legacy     bool      `json:"legacy"`
	Verify     bool      `json:"verify"`
	QueuedAt   time.Time `json:"queued_at"`
}

// ResultMessage reports the outcome of a JobMessage.
type ResultMessage struct {
	JobID       string  `json:"job_id"`
	WorkerID    string  `json:"worker_id"`
	InputPath   string  `json:"input_path"`
	OutputPath  string  `json:"output_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ExitCode    int     `json:"exit_code"`
	Error       string  `json:"error,omitempty"`
	ProcessTime float64 `json:"process_time"`
}

// OK reports whether the job succeeded.
func (r *ResultMessage) OK() bool { return r.ExitCode == 0 }

// Job status values stored per job.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
