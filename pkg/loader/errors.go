package loader

import (
	"errors"
	"fmt"

	"hyperspectral/internal/models"
)

var (
	// ErrDirectoryNotFound is returned when the root path is missing or is not a directory.
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrInvalidArgument is returned for an unknown frame type or a negative frame index.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFrameNotFound is returned when a required scan frame file is absent.
	ErrFrameNotFound = errors.New("frame not found")

	// ErrMalformedFrame is returned when a file does not hold exactly height*width elements.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrDuplicateFolder is returned when two folder names parse to the same position.
	ErrDuplicateFolder = errors.New("duplicate folder")
)

// FrameError describes a failure tied to one frame file.
type FrameError struct {
	Path string
	Type models.FrameType
	Err  error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s frame %s: %v", e.Type, e.Path, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// DuplicateFolderError names both folders that claimed the same position.
type DuplicateFolderError struct {
	Position models.Position
	First    string
	Second   string
}

func (e *DuplicateFolderError) Error() string {
	return fmt.Sprintf("folders %q and %q both map to position %s", e.First, e.Second, e.Position)
}

func (e *DuplicateFolderError) Unwrap() error {
	return ErrDuplicateFolder
}
