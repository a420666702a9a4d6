// Package loader discovers position-encoded frame folders and assembles
// their binary frames into an ordered hypercube plus a full transmission
// reference frame.
//
// A root directory looks like:
//
//	<root>/
//	  0_0/raw_0.bin          full transmission reference (optional)
//	  1_0/raw_0.bin          scan frames, one folder per position
//	  0_1/raw_0.bin
//	  2_3/raw_0.bin
//
// Folders are scanned once when the Loader is created.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"hyperspectral/internal/models"
)

const (
	// DefaultHeight is the frame height used when Params.Height is zero.
	DefaultHeight = 512
	// DefaultWidth is the frame width used when Params.Width is zero.
	DefaultWidth = 640

	maxElemSize = 4
)

// Params holds the loader construction parameters.
type Params struct {
	// Root is the directory containing the "<i>_<j>" folders.
	Root string

	// Height and Width fix the reshape target of every frame and must
	// match the on-disk frame dimensions. Zero selects the defaults.
	Height int
	Width  int

	// Logger receives scan and load diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Loader holds the folder registry of one root directory. The registry
// is never mutated after New, so a Loader is safe for concurrent use.
type Loader struct {
	root     string
	height   int
	width    int
	registry Registry
	ordered  []models.Position
	logger   *slog.Logger
}

// New scans params.Root and returns a loader for it.
func New(params *Params) (*Loader, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: nil params", ErrInvalidArgument)
	}

	height, width := params.Height, params.Width
	if height == 0 {
		height = DefaultHeight
	}
	if width == 0 {
		width = DefaultWidth
	}
	if height < 0 || width < 0 {
		return nil, fmt.Errorf("%w: frame dimensions must be positive, got %dx%d",
			ErrInvalidArgument, height, width)
	}
	// A frame of the widest element type must still be addressable in bytes
	if height > math.MaxInt/maxElemSize/width {
		return nil, fmt.Errorf("%w: frame dimensions %dx%d are too large",
			ErrInvalidArgument, height, width)
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := Scan(params.Root, logger)
	if err != nil {
		return nil, err
	}

	return &Loader{
		root:     params.Root,
		height:   height,
		width:    width,
		registry: registry,
		ordered:  OrderPositions(registry),
		logger:   logger,
	}, nil
}

// Root returns the scanned directory
func (l *Loader) Root() string { return l.root }

// Height returns the frame height used for reshaping
func (l *Loader) Height() int { return l.height }

// Width returns the frame width used for reshaping
func (l *Loader) Width() int { return l.width }

// Registry returns a copy of the folder registry.
func (l *Loader) Registry() Registry {
	out := make(Registry, len(l.registry))
	for pos, name := range l.registry {
		out[pos] = name
	}
	return out
}

// Ordered returns the non-origin positions in stacking order.
func (l *Loader) Ordered() []models.Position {
	return append([]models.Position(nil), l.ordered...)
}

// HasReference reports whether a (0, 0) folder was found
func (l *Loader) HasReference() bool {
	_, ok := l.registry[models.Origin]
	return ok
}

// FramePath builds <root>/<folder>/<type>_<index>.bin
func (l *Loader) FramePath(folder string, ft models.FrameType, index int) string {
	return filepath.Join(l.root, folder, ft.FileName(index))
}

// LoadFrames is Load with the frame type given by name.
func (l *Loader) LoadFrames(frameType string, index int) (*models.Hypercube, *models.Frame, error) {
	ft, ok := models.ParseFrameType(frameType)
	if !ok {
		return nil, nil, invalidFrameType(frameType)
	}
	return l.Load(ft, index)
}

// Load stacks the frame with the given type and index from every
// non-origin folder, in acquisition order, and loads the (0, 0) frame as
// the full transmission reference.
//
// The reference is nil when the origin folder or its file is missing.
// A missing scan frame aborts the whole call with ErrFrameNotFound.
func (l *Loader) Load(ft models.FrameType, index int) (*models.Hypercube, *models.Frame, error) {
	if !ft.Valid() {
		return nil, nil, invalidFrameType(string(ft))
	}
	if index < 0 {
		return nil, nil, fmt.Errorf("%w: frame index must be non-negative, got %d", ErrInvalidArgument, index)
	}

	elem := ft.ElementType()

	reference, err := l.loadReference(ft, index)
	if err != nil {
		return nil, nil, err
	}

	cube := models.NewHypercube(elem, l.height, l.width, len(l.ordered))
	for _, pos := range l.ordered {
		path := l.FramePath(l.registry[pos], ft, index)

		frame, err := l.readRequired(path, ft)
		if err != nil {
			return nil, nil, err
		}
		if err := cube.Append(pos, frame); err != nil {
			return nil, nil, &FrameError{Path: path, Type: ft, Err: err}
		}
	}

	l.logger.Info("loaded hypercube",
		"type", ft,
		"index", index,
		"frames", cube.Depth,
		"reference", reference != nil)

	return cube, reference, nil
}

func (l *Loader) loadReference(ft models.FrameType, index int) (*models.Frame, error) {
	folder, ok := l.registry[models.Origin]
	if !ok {
		return nil, nil
	}

	path := l.FramePath(folder, ft, index)
	frame, err := readFrame(path, ft.ElementType(), l.height, l.width)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Debug("full transmission frame absent", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, &FrameError{Path: path, Type: ft, Err: err}
	}
	return frame, nil
}

func (l *Loader) readRequired(path string, ft models.FrameType) (*models.Frame, error) {
	l.logger.Debug("reading frame", "path", path)

	frame, err := readFrame(path, ft.ElementType(), l.height, l.width)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &FrameError{Path: path, Type: ft, Err: ErrFrameNotFound}
	}
	if err != nil {
		return nil, &FrameError{Path: path, Type: ft, Err: err}
	}
	return frame, nil
}

func invalidFrameType(name string) error {
	allowed := make([]string, len(models.FrameTypes))
	for i, ft := range models.FrameTypes {
		allowed[i] = string(ft)
	}
	return fmt.Errorf("%w: frame type %q, must be one of %s",
		ErrInvalidArgument, name, strings.Join(allowed, ", "))
}

