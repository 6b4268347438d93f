package index

import (
	"log/slog"

	"github.com/starford/raido/internal/models"
)

// Sync brings the catalog up to date with one scan:
//   - new/changed files are upserted
//   - files no longer observed are deleted from the catalog
func Sync(db Catalog, records []models.FileRecord, logger *slog.Logger) error {
	fingerprints, err := db.AllFingerprints()
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(records))
	for _, rec := range records {
		present[rec.Path] = struct{}{}

		if fp, ok := fingerprints[rec.Path]; ok && fp == rec.Fingerprint {
			continue
		}
		if err := db.UpsertFile(rec); err != nil {
			logger.Warn("sync: index failed", slog.String("path", rec.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", rec.Path))
		}
	}

	removed, err := db.Prune(present)
	if err != nil {
		return err
	}
	if removed > 0 {
		logger.Debug("sync: removed stale", slog.Int("count", removed))
	}
	return nil
}
