package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"hyperspectral/internal/models"
)

// Viewer renders planes of a loaded hypercube for inspection. It never
// modifies the cube; scaling to 16-bit gray happens on a copy.
//
// Axes follow the cube layout: "z" walks the stacked frames, "y" the rows
// and "x" the columns.
type Viewer struct {
	cube *models.Hypercube

	// dimensions of the volume
	width  int
	height int
	depth  int
}

// NewViewer creates a viewer over cube
func NewViewer(cube *models.Hypercube) *Viewer {
	return &Viewer{
		cube:   cube,
		width:  cube.Width,
		height: cube.Height,
		depth:  cube.Depth,
	}
}

// Plane returns the raw values of one plane along axis together with its
// image dimensions (columns, rows).
func (v *Viewer) Plane(axis string, position int) ([]float64, int, int, error) {
	if position < 0 {
		return nil, 0, 0, fmt.Errorf("position must be non-negative")
	}

	switch axis {
	case "x", "X":
		// YZ plane: columns are frames, rows are image rows
		if position >= v.width {
			return nil, 0, 0, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}
		plane := make([]float64, v.depth*v.height)
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				plane[y*v.depth+z] = v.cube.At(z, y, position)
			}
		}
		return plane, v.depth, v.height, nil

	case "y", "Y":
		// XZ plane: one row per frame
		if position >= v.height {
			return nil, 0, 0, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}
		plane := make([]float64, v.width*v.depth)
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				plane[z*v.width+x] = v.cube.At(z, position, x)
			}
		}
		return plane, v.width, v.depth, nil

	case "z", "Z":
		// XY plane: a single stacked frame
		if position >= v.depth {
			return nil, 0, 0, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}
		frame, err := v.cube.Frame(position)
		if err != nil {
			return nil, 0, 0, err
		}
		return frame.Float64s(), v.width, v.height, nil

	default:
		return nil, 0, 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

// ExtractSlice renders one plane as a 16-bit grayscale image, stretching
// the plane's own min..max range over the full gray range.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray16, error) {
	plane, cols, rows, err := v.Plane(axis, position)
	if err != nil {
		return nil, err
	}

	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	if len(plane) == 0 {
		return img, nil
	}

	lo, hi := finiteRange(plane)
	span := hi - lo
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			val := plane[y*cols+x]
			var gray uint16
			if span > 0 && !math.IsNaN(val) {
				norm := math.Max(0, math.Min(1, (val-lo)/span))
				gray = uint16(norm * 65535)
			}
			img.SetGray16(x, y, color.Gray16{Y: gray})
		}
	}

	return img, nil
}

// finiteRange returns min and max ignoring NaN and infinities
func finiteRange(values []float64) (float64, float64) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, 0
	}
	return floats.Min(finite), floats.Max(finite)
}

// ExtractRegion extracts a 3D subregion of raw values, ordered (z, y, x)
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) ([]float64, error) {
	// Validate parameters
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}

	if startX+sizeX > v.width || startY+sizeY > v.height || startZ+sizeZ > v.depth {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]float64, sizeX*sizeY*sizeZ)
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				dstIdx := z*sizeX*sizeY + y*sizeX + x
				region[dstIdx] = v.cube.At(startZ+z, startY+y, startX+x)
			}
		}
	}

	return region, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every plane along the specified axis.
// Frame previews along z are named after their scan position.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.width
	case "y", "Y":
		maxPos = v.height
	case "z", "Z":
		maxPos = v.depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	// Planes along x and y are empty images when no frames were stacked
	if v.depth == 0 {
		return nil
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		name := fmt.Sprintf("slice_%s_%03d.jpg", axis, pos)
		if (axis == "z" || axis == "Z") && pos < len(v.cube.Positions) {
			name = fmt.Sprintf("slice_z_%03d_%s.jpg", pos, v.cube.Positions[pos])
		}
		if err := v.SaveSlice(img, filepath.Join(outputDir, name)); err != nil {
			return err
		}
	}

	return nil
}
