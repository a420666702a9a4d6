package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hyperspectral/internal/models"
)

// Registry maps each scan position to the folder name it was parsed from.
type Registry map[models.Position]string

// ParsePosition parses a folder name of the form "<digits>_<digits>".
// Signs, decimals, extra underscores, empty components and non-ASCII
// digits are rejected, as are components that overflow int.
func ParsePosition(name string) (models.Position, bool) {
	parts := strings.Split(name, "_")
	if len(parts) != 2 {
		return models.Position{}, false
	}

	i, ok := parseDigits(parts[0])
	if !ok {
		return models.Position{}, false
	}
	j, ok := parseDigits(parts[1])
	if !ok {
		return models.Position{}, false
	}

	return models.Position{I: i, J: j}, true
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Scan classifies the immediate subdirectories of root into a Registry.
// Names that are not position-encoded are skipped. Two names mapping to
// the same position (e.g. "1_2" and "01_2") fail with ErrDuplicateFolder.
func Scan(root string, logger *slog.Logger) (Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Check the root itself first so a file path reports the right error
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDirectoryNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDirectoryNotFound, root, err)
	}

	registry := make(Registry)
	for _, entry := range entries {
		name := entry.Name()

		isDir, err := isDirEntry(root, entry)
		if err != nil {
			logger.Debug("skipping unreadable entry", "name", name, "error", err)
			continue
		}
		if !isDir {
			continue
		}

		pos, ok := ParsePosition(name)
		if !ok {
			logger.Debug("skipping folder without position", "name", name)
			continue
		}

		if existing, dup := registry[pos]; dup {
			return nil, &DuplicateFolderError{Position: pos, First: existing, Second: name}
		}
		registry[pos] = name
	}

	logger.Info("scanned frame folders", "root", root, "folders", len(registry))
	return registry, nil
}

// isDirEntry follows symlinks so linked folders are classified like real ones.
func isDirEntry(root string, entry os.DirEntry) (bool, error) {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.IsDir(), nil
	}
	info, err := os.Stat(filepath.Join(root, entry.Name()))
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
