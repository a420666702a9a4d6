package models

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Position is the (I, J) scan coordinate encoded in a folder name "<i>_<j>".
type Position struct {
	I int
	J int
}

// Origin is the position of the full transmission reference capture.
var Origin = Position{I: 0, J: 0}

// IsOrigin reports whether p is the (0, 0) reference position
func (p Position) IsOrigin() bool {
	return p == Origin
}

// String renders the position the way it appears on disk
func (p Position) String() string {
	return strconv.Itoa(p.I) + "_" + strconv.Itoa(p.J)
}

// Less orders positions by I first, ties broken by J.
func (p Position) Less(q Position) bool {
	if p.I != q.I {
		return p.I < q.I
	}
	return p.J < q.J
}

// ElementType is the numeric type of a single frame element on disk.
type ElementType int

const (
	// Uint16 is a 16-bit unsigned little-endian integer
	Uint16 ElementType = iota
	// Float32 is a 32-bit little-endian IEEE 754 float
	Float32
)

// Size returns the number of bytes one element occupies on disk
func (e ElementType) Size() int {
	switch e {
	case Float32:
		return 4
	default:
		return 2
	}
}

func (e ElementType) String() string {
	switch e {
	case Float32:
		return "float32"
	case Uint16:
		return "uint16"
	default:
		return fmt.Sprintf("ElementType(%d)", int(e))
	}
}

// FrameType is the acquisition modality. It selects both the file name
// prefix and the element type of the stored frames.
type FrameType string

const (
	Calibrated  FrameType = "calibrated"
	Raw         FrameType = "raw"
	Temperature FrameType = "temperature"
)

// FrameTypes lists every supported frame type
var FrameTypes = []FrameType{Calibrated, Raw, Temperature}

var elementTypes = map[FrameType]ElementType{
	Calibrated:  Uint16,
	Raw:         Uint16,
	Temperature: Float32,
}

// ParseFrameType validates s against the closed set of frame types.
func ParseFrameType(s string) (FrameType, bool) {
	ft := FrameType(s)
	_, ok := elementTypes[ft]
	return ft, ok
}

// Valid reports whether ft is one of the supported frame types
func (ft FrameType) Valid() bool {
	_, ok := elementTypes[ft]
	return ok
}

// ElementType returns the on-disk element type for ft.
func (ft FrameType) ElementType() ElementType {
	return elementTypes[ft]
}

// FileName builds the per-folder file name for a frame, e.g. "raw_3.bin".
func (ft FrameType) FileName(index int) string {
	return fmt.Sprintf("%s_%d.bin", ft, index)
}

// Frame is a single 2D frame stored in row-major order. Exactly one of
// Uint16s or Float32s is populated, depending on Elem.
type Frame struct {
	Height   int
	Width    int
	Elem     ElementType
	Uint16s  []uint16
	Float32s []float32
}

// Shape returns (height, width)
func (f *Frame) Shape() (int, int) {
	return f.Height, f.Width
}

// At returns the element at row y, column x widened to float64.
func (f *Frame) At(y, x int) float64 {
	idx := y*f.Width + x
	if f.Elem == Float32 {
		return float64(f.Float32s[idx])
	}
	return float64(f.Uint16s[idx])
}

// Float64s returns a widened copy of the frame data
func (f *Frame) Float64s() []float64 {
	out := make([]float64, f.Height*f.Width)
	if f.Elem == Float32 {
		for i, v := range f.Float32s {
			out[i] = float64(v)
		}
		return out
	}
	for i, v := range f.Uint16s {
		out[i] = float64(v)
	}
	return out
}

// Dense returns the frame as a height x width gonum matrix. The matrix
// owns a copy of the data. A frame with no elements has no matrix form
// and returns nil.
func (f *Frame) Dense() *mat.Dense {
	if f.Height <= 0 || f.Width <= 0 {
		return nil
	}
	return mat.NewDense(f.Height, f.Width, f.Float64s())
}

// Hypercube is a stack of same-shaped frames along a leading axis,
// stored contiguously as (depth, height, width) in row-major order.
//
// A Hypercube with Depth 0 is valid and holds no data.
type Hypercube struct {
	Depth  int
	Height int
	Width  int
	Elem   ElementType

	// Positions records the scan position of each frame along the leading axis
	Positions []Position

	Uint16s  []uint16
	Float32s []float32
}

// maxPrealloc bounds the elements reserved before any frame is appended.
// Larger cubes grow as frames arrive.
const maxPrealloc = 1 << 24

// NewHypercube returns an empty stack expecting depth frames.
func NewHypercube(elem ElementType, height, width, depth int) *Hypercube {
	h := &Hypercube{
		Height:    height,
		Width:     width,
		Elem:      elem,
		Positions: make([]Position, 0, depth),
	}

	capacity := 0
	if height > 0 && width > 0 && depth > 0 &&
		width <= maxPrealloc/height && depth <= maxPrealloc/(height*width) {
		capacity = depth * height * width
	}

	switch elem {
	case Float32:
		h.Float32s = make([]float32, 0, capacity)
	default:
		h.Uint16s = make([]uint16, 0, capacity)
	}
	return h
}

// Shape returns (depth, height, width)
func (h *Hypercube) Shape() (int, int, int) {
	return h.Depth, h.Height, h.Width
}

// Empty reports whether the stack holds no frames
func (h *Hypercube) Empty() bool {
	return h.Depth == 0
}

// Append stacks f as the next frame. The frame must match the cube's
// element type and frame dimensions.
func (h *Hypercube) Append(pos Position, f *Frame) error {
	if f.Elem != h.Elem {
		return fmt.Errorf("element type mismatch: cube holds %s, frame is %s", h.Elem, f.Elem)
	}
	if f.Height != h.Height || f.Width != h.Width {
		return fmt.Errorf("frame shape %dx%d does not match cube shape %dx%d",
			f.Height, f.Width, h.Height, h.Width)
	}

	if h.Elem == Float32 {
		h.Float32s = append(h.Float32s, f.Float32s...)
	} else {
		h.Uint16s = append(h.Uint16s, f.Uint16s...)
	}
	h.Positions = append(h.Positions, pos)
	h.Depth++
	return nil
}

// Frame returns a view of the k-th frame. The returned frame shares
// memory with the cube.
func (h *Hypercube) Frame(k int) (*Frame, error) {
	if k < 0 || k >= h.Depth {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", k, h.Depth)
	}
	n := h.Height * h.Width
	f := &Frame{Height: h.Height, Width: h.Width, Elem: h.Elem}
	if h.Elem == Float32 {
		f.Float32s = h.Float32s[k*n : (k+1)*n : (k+1)*n]
	} else {
		f.Uint16s = h.Uint16s[k*n : (k+1)*n : (k+1)*n]
	}
	return f, nil
}

// At returns the element at frame k, row y, column x widened to float64
func (h *Hypercube) At(k, y, x int) float64 {
	idx := k*h.Height*h.Width + y*h.Width + x
	if h.Elem == Float32 {
		return float64(h.Float32s[idx])
	}
	return float64(h.Uint16s[idx])
}

// Plane returns frame k as a gonum matrix copy.
func (h *Hypercube) Plane(k int) (*mat.Dense, error) {
	f, err := h.Frame(k)
	if err != nil {
		return nil, err
	}
	return f.Dense(), nil
}
