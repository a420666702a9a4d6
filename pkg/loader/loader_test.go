package loader

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hyperspectral/internal/models"
)

const (
	testHeight = 3
	testWidth  = 4
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeUint16Frame writes a little-endian uint16 frame whose every element is fill+offset
func writeUint16Frame(t *testing.T, path string, fill uint16, count int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create frame dir: %v", err)
	}
	buf := make([]byte, 2*count)
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], fill+uint16(i))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("Failed to write frame %s: %v", path, err)
	}
}

func writeFloat32Frame(t *testing.T, path string, fill float32, count int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create frame dir: %v", err)
	}
	buf := make([]byte, 4*count)
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(fill+float32(i)/10))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("Failed to write frame %s: %v", path, err)
	}
}

// createTestTree builds a root with the given folders, each holding
// calibrated_<index>.bin filled with a folder-specific value.
func createTestTree(t *testing.T, folders map[string]uint16, index int) string {
	t.Helper()
	root := t.TempDir()
	for name, fill := range folders {
		path := filepath.Join(root, name, models.Calibrated.FileName(index))
		writeUint16Frame(t, path, fill, testHeight*testWidth)
	}
	return root
}

func newTestLoader(t *testing.T, root string) *Loader {
	t.Helper()
	l, err := New(&Params{Root: root, Height: testHeight, Width: testWidth, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}
	return l
}

func TestNewDefaults(t *testing.T) {
	root := t.TempDir()
	l, err := New(&Params{Root: root, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}
	if l.Height() != DefaultHeight || l.Width() != DefaultWidth {
		t.Errorf("Expected default shape %dx%d, got %dx%d", DefaultHeight, DefaultWidth, l.Height(), l.Width())
	}
	if l.Root() != root {
		t.Errorf("Expected root %s, got %s", root, l.Root())
	}
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(&Params{Root: filepath.Join(t.TempDir(), "missing"), Logger: quietLogger()})
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Fatalf("Expected ErrDirectoryNotFound, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected underlying not-exist error to be preserved, got %v", err)
	}
}

func TestNewRejectsFileRoot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := New(&Params{Root: file, Logger: quietLogger()})
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Fatalf("Expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestNewRejectsInvalidDimensions(t *testing.T) {
	tests := []struct {
		name          string
		height, width int
	}{
		{"negative height", -1, 4},
		{"negative width", 4, -1},
		{"product overflows int", math.MaxInt / 2, math.MaxInt / 2},
		{"float32 byte size overflows int", math.MaxInt/4 + 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&Params{Root: t.TempDir(), Height: tt.height, Width: tt.width, Logger: quietLogger()})
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

// TestLoadFramesHugeDimensionsAreMalformed checks that large but valid
// dimensions neither wrap nor allocate the whole cube before reading.
func TestLoadFramesHugeDimensionsAreMalformed(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("Dimensions exceed int on this platform")
	}

	for _, bytes := range []int{0, 2} {
		root := t.TempDir()
		path := filepath.Join(root, "1_0", "calibrated_0.bin")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, bytes), 0644); err != nil {
			t.Fatal(err)
		}

		l, err := New(&Params{Root: root, Height: 1 << 24, Width: 1 << 24, Logger: quietLogger()})
		if err != nil {
			t.Fatalf("Failed to create loader: %v", err)
		}

		cube, _, err := l.LoadFrames("calibrated", 0)
		if !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("%d-byte file: expected ErrMalformedFrame, got %v", bytes, err)
		}
		if cube != nil {
			t.Errorf("%d-byte file: expected no hypercube", bytes)
		}
	}
}

func TestLoadFramesOrderAndReference(t *testing.T) {
	folders := map[string]uint16{
		"0_0": 1000,
		"1_0": 100,
		"2_0": 200,
		"0_1": 300,
		"0_3": 400,
		"1_1": 500,
		"3_2": 600,
	}
	root := createTestTree(t, folders, 3)
	l := newTestLoader(t, root)

	cube, reference, err := l.LoadFrames("calibrated", 3)
	if err != nil {
		t.Fatalf("LoadFrames failed: %v", err)
	}

	depth, height, width := cube.Shape()
	if depth != 6 || height != testHeight || width != testWidth {
		t.Fatalf("Expected shape (6, %d, %d), got (%d, %d, %d)", testHeight, testWidth, depth, height, width)
	}
	if cube.Elem != models.Uint16 {
		t.Errorf("Expected uint16 cube, got %s", cube.Elem)
	}

	wantPositions := []models.Position{{I: 1, J: 0}, {I: 2, J: 0}, {I: 0, J: 1}, {I: 0, J: 3}, {I: 1, J: 1}, {I: 3, J: 2}}
	if diff := cmp.Diff(wantPositions, cube.Positions); diff != "" {
		t.Errorf("Stack positions mismatch (-want +got):\n%s", diff)
	}

	// First element of each frame identifies the source folder
	wantFirst := []float64{100, 200, 300, 400, 500, 600}
	for k, want := range wantFirst {
		if got := cube.At(k, 0, 0); got != want {
			t.Errorf("Frame %d: expected first element %v, got %v", k, want, got)
		}
	}
	if got := cube.At(5, testHeight-1, testWidth-1); got != 600+testHeight*testWidth-1 {
		t.Errorf("Expected last element %d, got %v", 600+testHeight*testWidth-1, got)
	}

	if reference == nil {
		t.Fatal("Expected full transmission frame, got nil")
	}
	if h, w := reference.Shape(); h != testHeight || w != testWidth {
		t.Errorf("Expected reference shape %dx%d, got %dx%d", testHeight, testWidth, h, w)
	}
	if reference.At(0, 0) != 1000 {
		t.Errorf("Expected reference to come from 0_0, got first element %v", reference.At(0, 0))
	}
}

func TestLoadFramesTemperatureIsFloat32(t *testing.T) {
	root := t.TempDir()
	count := testHeight * testWidth
	writeFloat32Frame(t, filepath.Join(root, "0_0", "temperature_0.bin"), 20.5, count)
	writeFloat32Frame(t, filepath.Join(root, "1_0", "temperature_0.bin"), 36.25, count)
	l := newTestLoader(t, root)

	cube, reference, err := l.LoadFrames("temperature", 0)
	if err != nil {
		t.Fatalf("LoadFrames failed: %v", err)
	}
	if cube.Elem != models.Float32 || reference.Elem != models.Float32 {
		t.Fatalf("Expected float32 data, got cube %s reference %s", cube.Elem, reference.Elem)
	}
	if got := cube.At(0, 0, 0); got != 36.25 {
		t.Errorf("Expected 36.25, got %v", got)
	}
	if got := reference.At(0, 0); got != 20.5 {
		t.Errorf("Expected 20.5, got %v", got)
	}
	if len(cube.Uint16s) != 0 {
		t.Errorf("Expected no uint16 data in a float32 cube")
	}
}

func TestLoadFramesMissingScanFrame(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "1_0"), 0755); err != nil {
		t.Fatal(err)
	}
	writeUint16Frame(t, filepath.Join(root, "2_0", "calibrated_3.bin"), 0, testHeight*testWidth)
	l := newTestLoader(t, root)

	cube, reference, err := l.LoadFrames("calibrated", 3)
	if !errors.Is(err, ErrFrameNotFound) {
		t.Fatalf("Expected ErrFrameNotFound, got %v", err)
	}
	if cube != nil || reference != nil {
		t.Errorf("Expected no partial result on failure")
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("Expected *FrameError, got %T", err)
	}
	wantPath := filepath.Join(root, "1_0", "calibrated_3.bin")
	if frameErr.Path != wantPath {
		t.Errorf("Expected path %s, got %s", wantPath, frameErr.Path)
	}
	if frameErr.Type != models.Calibrated {
		t.Errorf("Expected frame type calibrated, got %s", frameErr.Type)
	}
}

func TestLoadFramesMissingReferenceIsNotAnError(t *testing.T) {
	root := createTestTree(t, map[string]uint16{"1_0": 1}, 0)
	if err := os.MkdirAll(filepath.Join(root, "0_0"), 0755); err != nil {
		t.Fatal(err)
	}
	l := newTestLoader(t, root)
	if !l.HasReference() {
		t.Fatal("Expected 0_0 folder to be registered")
	}

	cube, reference, err := l.LoadFrames("calibrated", 0)
	if err != nil {
		t.Fatalf("LoadFrames failed: %v", err)
	}
	if reference != nil {
		t.Errorf("Expected absent reference, got %+v", reference)
	}
	if cube.Depth != 1 {
		t.Errorf("Expected 1 frame, got %d", cube.Depth)
	}
}

func TestLoadFramesEmptyRegistry(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"notes", "a_b", "1_2_3"} {
		if err := os.MkdirAll(filepath.Join(root, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	l := newTestLoader(t, root)

	cube, reference, err := l.LoadFrames("raw", 7)
	if err != nil {
		t.Fatalf("LoadFrames failed: %v", err)
	}
	if !cube.Empty() {
		t.Errorf("Expected empty hypercube, got depth %d", cube.Depth)
	}
	if depth, height, width := cube.Shape(); depth != 0 || height != testHeight || width != testWidth {
		t.Errorf("Expected shape (0, %d, %d), got (%d, %d, %d)", testHeight, testWidth, depth, height, width)
	}
	if reference != nil {
		t.Errorf("Expected absent reference")
	}
}

func TestLoadFramesOnlyOrigin(t *testing.T) {
	root := createTestTree(t, map[string]uint16{"0_0": 5}, 0)
	l := newTestLoader(t, root)

	cube, reference, err := l.LoadFrames("calibrated", 0)
	if err != nil {
		t.Fatalf("LoadFrames failed: %v", err)
	}
	if !cube.Empty() {
		t.Errorf("Expected empty hypercube, got depth %d", cube.Depth)
	}
	if reference == nil {
		t.Errorf("Expected reference frame from 0_0")
	}
}

func TestLoadFramesInvalidType(t *testing.T) {
	// Root removed after construction: an invalid type must fail before any I/O
	root := createTestTree(t, map[string]uint16{"1_0": 1}, 0)
	l := newTestLoader(t, root)
	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}

	_, _, err := l.LoadFrames("foo", 0)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Expected ErrInvalidArgument, got %v", err)
	}
	for _, name := range []string{"calibrated", "raw", "temperature"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Expected error to name allowed value %q: %v", name, err)
		}
	}
}

func TestLoadFramesNegativeIndex(t *testing.T) {
	l := newTestLoader(t, t.TempDir())
	_, _, err := l.LoadFrames("raw", -1)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestLoadFramesMalformed(t *testing.T) {
	tests := []struct {
		name   string
		folder string
		bytes  int
	}{
		{"short scan frame", "1_0", 2 * (testHeight*testWidth - 1)},
		{"odd byte count", "1_0", 2*testHeight*testWidth + 1},
		{"oversized reference", "0_0", 2 * (testHeight*testWidth + testWidth)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := createTestTree(t, map[string]uint16{"0_0": 0, "1_0": 0}, 0)
			path := filepath.Join(root, tt.folder, "calibrated_0.bin")
			if err := os.WriteFile(path, make([]byte, tt.bytes), 0644); err != nil {
				t.Fatal(err)
			}
			l := newTestLoader(t, root)

			_, _, err := l.LoadFrames("calibrated", 0)
			if !errors.Is(err, ErrMalformedFrame) {
				t.Fatalf("Expected ErrMalformedFrame, got %v", err)
			}
			var frameErr *FrameError
			if !errors.As(err, &frameErr) || frameErr.Path != path {
				t.Errorf("Expected error to reference %s, got %v", path, err)
			}
		})
	}
}

func TestLoadFramesIdempotent(t *testing.T) {
	root := createTestTree(t, map[string]uint16{"0_0": 9, "1_0": 1, "0_2": 2, "4_4": 3}, 1)
	l := newTestLoader(t, root)

	cube1, ref1, err := l.LoadFrames("calibrated", 1)
	if err != nil {
		t.Fatalf("First load failed: %v", err)
	}
	cube2, ref2, err := l.LoadFrames("calibrated", 1)
	if err != nil {
		t.Fatalf("Second load failed: %v", err)
	}

	if diff := cmp.Diff(cube1, cube2); diff != "" {
		t.Errorf("Hypercubes differ between loads (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(ref1, ref2); diff != "" {
		t.Errorf("Reference frames differ between loads (-first +second):\n%s", diff)
	}
}

func TestRegistryIsACopy(t *testing.T) {
	root := createTestTree(t, map[string]uint16{"1_0": 1}, 0)
	l := newTestLoader(t, root)

	reg := l.Registry()
	reg[models.Position{I: 9, J: 9}] = "9_9"
	delete(reg, models.Position{I: 1, J: 0})

	if got := len(l.Registry()); got != 1 {
		t.Errorf("Expected loader registry to be unaffected, got %d entries", got)
	}
	if diff := cmp.Diff([]models.Position{{I: 1, J: 0}}, l.Ordered()); diff != "" {
		t.Errorf("Ordered mismatch (-want +got):\n%s", diff)
	}
}
