package suggest

import (
	"context"
	"log/slog"

	"github.com/starford/raido/internal/models"
)

// Cache stores suggestions per file version.
type Cache interface {
	CachedSuggestion(path, fingerprint string) (models.Suggestion, bool, error)
	StoreSuggestion(path, fingerprint string, sug models.Suggestion) error
}

// Cached reuses a stored suggestion while the file is unchanged, so repeated
// passes over an unorganized file do not ask the model again.
type Cached struct {
	next   Provider
	cache  Cache
	logger *slog.Logger
}

var _ Provider = (*Cached)(nil)

// NewCached wraps next with cache.
func NewCached(next Provider, cache Cache, logger *slog.Logger) *Cached {
	return &Cached{next: next, cache: cache, logger: logger}
}

// Suggest implements Provider.
func (c *Cached) Suggest(ctx context.Context, rec models.FileRecord) models.Suggestion {
	if rec.Fingerprint == "" {
		return c.next.Suggest(ctx, rec)
	}

	sug, ok, err := c.cache.CachedSuggestion(rec.Path, rec.Fingerprint)
	if err != nil {
		c.logger.Warn("suggest: cache lookup failed", slog.String("path", rec.Path), slog.String("error", err.Error()))
	}
	if ok {
		return sug
	}

	sug = c.next.Suggest(ctx, rec)
	if sug.Source != models.SourceFallback {
		if err := c.cache.StoreSuggestion(rec.Path, rec.Fingerprint, sug); err != nil {
			c.logger.Warn("suggest: cache store failed", slog.String("path", rec.Path), slog.String("error", err.Error()))
		}
	}
	return sug
}
