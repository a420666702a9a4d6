package loader

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"hyperspectral/internal/models"
)

// readFrame reads a whole little-endian frame file and reshapes it to
// height x width. The file must contain exactly height*width elements.
func readFrame(path string, elem models.ElementType, height, width int) (*models.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeFrame(data, elem, height, width)
}

func decodeFrame(data []byte, elem models.ElementType, height, width int) (*models.Frame, error) {
	size := elem.Size()
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %s elements",
			ErrMalformedFrame, len(data), elem)
	}

	// Compare without multiplying so oversized dimensions cannot wrap
	count := len(data) / size
	if height <= 0 || width <= 0 || count%width != 0 || count/width != height {
		return nil, fmt.Errorf("%w: cannot reshape %d %s elements into %dx%d",
			ErrMalformedFrame, count, elem, height, width)
	}

	frame := &models.Frame{Height: height, Width: width, Elem: elem}
	switch elem {
	case models.Float32:
		frame.Float32s = make([]float32, count)
		for i := range frame.Float32s {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			frame.Float32s[i] = math.Float32frombits(bits)
		}
	default:
		frame.Uint16s = make([]uint16, count)
		for i := range frame.Uint16s {
			frame.Uint16s[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
	}

	return frame, nil
}
