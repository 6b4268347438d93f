package suggest

import (
	"context"

	"github.com/starford/raido/internal/models"
)

// Provider returns a structurally valid Suggestion for every record. On any
// failure it returns models.Fallback, never an error.
type Provider interface {
	Suggest(ctx context.Context, rec models.FileRecord) models.Suggestion
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, rec models.FileRecord) models.Suggestion

// Suggest calls f.
func (f ProviderFunc) Suggest(ctx context.Context, rec models.FileRecord) models.Suggestion {
	return f(ctx, rec)
}

// Static always returns sug, normalized.
func Static(sug models.Suggestion) Provider {
	return ProviderFunc(func(context.Context, models.FileRecord) models.Suggestion {
		return sug.Normalized()
	})
}
