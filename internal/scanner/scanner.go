// Package scanner lists the files directly inside the monitored folders and
// builds FileRecords for them.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/preview"
	"github.com/starford/raido/internal/storage"
)

// Scanner produces FileRecords for the monitored folders. It never descends
// into subdirectories.
type Scanner struct {
	folders      []string
	previewChars int
	logger       *slog.Logger
}

// New creates a Scanner over folders. "~" prefixes are expanded.
func New(folders []string, previewChars int, logger *slog.Logger) *Scanner {
	expanded := make([]string, 0, len(folders))
	for _, f := range folders {
		expanded = append(expanded, ExpandHome(f))
	}
	return &Scanner{folders: expanded, previewChars: previewChars, logger: logger}
}

// Folders returns the expanded monitored folders.
func (s *Scanner) Folders() []string {
	return s.folders
}

// Scan lists every monitored folder. A folder that cannot be read is
// reported in errs and the others are still scanned.
func (s *Scanner) Scan(ctx context.Context) ([]models.FileRecord, []error) {
	var (
		out  []models.FileRecord
		errs []error
	)
	for _, dir := range s.folders {
		entries, err := os.ReadDir(dir)
		if err != nil {
			s.logger.Warn("scanner: folder unreadable", slog.String("folder", dir), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("scanner: read %s: %w", dir, err))
			continue
		}
		for _, e := range entries {
			if ctx.Err() != nil {
				return out, append(errs, ctx.Err())
			}
			if !e.Type().IsRegular() || Ignored(e.Name()) {
				continue
			}
			rec, err := s.Record(filepath.Join(dir, e.Name()))
			if err != nil {
				// Vanished between listing and stat.
				s.logger.Debug("scanner: skip", slog.String("path", e.Name()), slog.String("error", err.Error()))
				continue
			}
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, errs
}

// Record builds a FileRecord for one path.
func (s *Scanner) Record(path string) (models.FileRecord, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.FileRecord{}, fmt.Errorf("scanner: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.FileRecord{}, fmt.Errorf("scanner: stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return models.FileRecord{}, fmt.Errorf("scanner: %s: %w", abs, apperr.ErrNotRegular)
	}

	text, err := preview.Extract(abs, s.previewChars)
	if err != nil {
		s.logger.Debug("scanner: preview failed", slog.String("path", abs), slog.String("error", err.Error()))
	}

	return models.FileRecord{
		Path:        abs,
		Name:        info.Name(),
		SizeBytes:   info.Size(),
		CreatedAt:   createdAt(info),
		ModifiedAt:  info.ModTime(),
		Preview:     text,
		Fingerprint: checksum.Fingerprint(info.Name(), info.Size(), info.ModTime()),
	}, nil
}

// Ignored reports whether a file name is hidden or one of raido's own temp files.
func Ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, storage.TempPrefix)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
