// Package ingest loads input files from the local filesystem into
// descriptors the pipeline can classify. Persistence of inputs and results
// belongs to the surrounding storage layer, not here.
package ingest

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/weiliang-ho/dealerdocs/constants"
	"github.com/weiliang-ho/dealerdocs/internal/entity"
)

// DirStats aggregates one directory walk.
type DirStats struct {
	Scanned   int
	Matched   int
	Succeeded int
	Failed    int
	Skipped   int
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// LoadFile reads one file into a descriptor.
func LoadFile(path string) (entity.FileDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.FileDescriptor{}, err
	}
	return entity.NewFileDescriptor(filepath.Base(path), data), nil
}

// WalkDirectory walks root and loads every supported file into a
// descriptor, skipping hidden entries when requested. Unsupported
// extensions are counted but not loaded; per-file read errors are counted
// and do not abort the walk.
func WalkDirectory(root string, skipHidden bool, logger *slog.Logger) ([]entity.FileDescriptor, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var files []entity.FileDescriptor
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			logger.Warn("ingest.walk_error", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			stats.Skipped++
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if constants.KindForExt(filepath.Ext(path)) == constants.KindUnsupported {
			stats.Skipped++
			return nil
		}
		stats.Matched++

		fd, err := LoadFile(path)
		if err != nil {
			logger.Warn("ingest.read_failed", "path", path, "error", err)
			stats.Failed++
			return nil
		}
		files = append(files, fd)
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return files, stats, err
	}
	return files, stats, nil
}
