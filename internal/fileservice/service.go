// Package fileservice exposes the catalog and the organizer to the HTTP API
// and the MCP server through one set of operations.
package fileservice

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/applier"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/organizer"
	"github.com/starford/raido/internal/suggest"
)

// FileItem is a lightweight catalog entry.
type FileItem struct {
	Path       string             `json:"path"`
	Name       string             `json:"name"`
	SizeBytes  int64              `json:"size_bytes"`
	ModifiedAt time.Time          `json:"modified_time"`
	Suggestion *models.Suggestion `json:"suggestion,omitempty"`
	SeenAt     time.Time          `json:"seen_at"`
}

// FileDetail is a catalog entry with its preview.
type FileDetail struct {
	FileItem
	Preview     string `json:"preview"`
	Fingerprint string `json:"fingerprint"`
}

// Recorder lists the monitored folders and builds fresh FileRecords.
type Recorder interface {
	organizer.Scanner
	Record(path string) (models.FileRecord, error)
}

// Service coordinates the catalog, the suggestion provider and the applier.
type Service struct {
	catalog   index.Catalog
	org       *organizer.Organizer
	recorder  Recorder
	suggester suggest.Provider
	applier   organizer.Applier
}

// NewService creates a new file service. ap is used for explicit apply
// requests and usually auto-confirms, since the caller already decided.
func NewService(catalog index.Catalog, org *organizer.Organizer, rec Recorder, sp suggest.Provider, ap organizer.Applier) *Service {
	return &Service{catalog: catalog, org: org, recorder: rec, suggester: sp, applier: ap}
}

// ListFiles returns a page of catalogued files.
func (s *Service) ListFiles(_ context.Context, limit, offset int) ([]FileItem, int, error) {
	rows, total, err := s.catalog.ListFiles(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]FileItem, len(rows))
	for i, r := range rows {
		items[i] = toItem(r)
	}
	return items, total, nil
}

// GetFile returns one catalogued file.
func (s *Service) GetFile(_ context.Context, path string) (*FileDetail, error) {
	row, err := s.catalog.GetFile(path)
	if err != nil {
		return nil, err
	}
	return &FileDetail{
		FileItem:    toItem(*row),
		Preview:     row.Preview,
		Fingerprint: row.Fingerprint,
	}, nil
}

// Search delegates full-text search to the catalog.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.catalog.Search(query, limit)
}

// Files lists the monitored files as they are on disk now, without
// suggesting or applying anything.
func (s *Service) Files(ctx context.Context) ([]models.FileRecord, []error) {
	return s.recorder.Scan(ctx)
}

// Scan runs one organizer pass.
func (s *Service) Scan(ctx context.Context) (organizer.Summary, error) {
	return s.org.RunPass(ctx)
}

// Running reports whether a pass is in progress.
func (s *Service) Running() bool {
	return s.org.Running()
}

// Recent returns the latest outcomes, newest first.
func (s *Service) Recent(n int) []applier.Outcome {
	return s.org.Recent(n)
}

// Suggest asks the provider about one monitored file without applying anything.
func (s *Service) Suggest(ctx context.Context, path string) (models.FileRecord, models.Suggestion, error) {
	rec, err := s.record(path)
	if err != nil {
		return models.FileRecord{}, models.Suggestion{}, err
	}
	return rec, s.suggester.Suggest(ctx, rec), nil
}

// Apply executes a caller-supplied suggestion for one monitored file and
// records the outcome like a pass would.
func (s *Service) Apply(ctx context.Context, path string, sug models.Suggestion) (applier.Outcome, error) {
	rec, err := s.record(path)
	if err != nil {
		return applier.Outcome{}, err
	}
	var out applier.Outcome
	if s.org.DryRun() {
		out = applier.Skipped(rec.Path, applier.ReasonDryRun)
	} else {
		out = s.applier.Apply(ctx, rec, sug)
	}
	s.org.Record(rec, out)
	return out, nil
}

// record resolves path to a file directly inside a monitored folder.
func (s *Service) record(path string) (models.FileRecord, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.FileRecord{}, err
	}
	if !s.monitored(filepath.Dir(abs)) {
		return models.FileRecord{}, apperr.ErrPathEscape
	}
	rec, err := s.recorder.Record(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.FileRecord{}, apperr.ErrNotFound
		}
		return models.FileRecord{}, err
	}
	return rec, nil
}

func (s *Service) monitored(dir string) bool {
	for _, f := range s.recorder.Folders() {
		abs, err := filepath.Abs(f)
		if err == nil && abs == dir {
			return true
		}
	}
	return false
}

func toItem(r index.FileRow) FileItem {
	return FileItem{
		Path:       r.Path,
		Name:       r.Name,
		SizeBytes:  r.SizeBytes,
		ModifiedAt: r.ModifiedAt,
		Suggestion: r.Suggestion,
		SeenAt:     r.SeenAt,
	}
}
