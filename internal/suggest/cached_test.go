package suggest

import (
	"context"
	"testing"

	"github.com/starford/raido/internal/models"
)

type memCache map[string]models.Suggestion

func (m memCache) CachedSuggestion(path, fp string) (models.Suggestion, bool, error) {
	s, ok := m[path+"@"+fp]
	if ok {
		s.Source = models.SourceCache
	}
	return s, ok, nil
}

func (m memCache) StoreSuggestion(path, fp string, sug models.Suggestion) error {
	m[path+"@"+fp] = sug
	return nil
}

func counting(sug func(models.FileRecord) models.Suggestion, calls *int) Provider {
	return ProviderFunc(func(_ context.Context, rec models.FileRecord) models.Suggestion {
		*calls++
		return sug(rec)
	})
}

func TestCached_ReusesUntilFingerprintChanges(t *testing.T) {
	calls := 0
	next := counting(func(models.FileRecord) models.Suggestion {
		return models.Suggestion{Name: "b.txt", Source: models.SourceModel}
	}, &calls)
	c := NewCached(next, memCache{}, quiet())
	rec := models.FileRecord{Path: "/x/a.txt", Name: "a.txt", Fingerprint: "v1"}

	first := c.Suggest(context.Background(), rec)
	second := c.Suggest(context.Background(), rec)
	if calls != 1 {
		t.Errorf("provider called %d times, want 1", calls)
	}
	if first.Source != models.SourceModel || second.Source != models.SourceCache || second.Name != "b.txt" {
		t.Errorf("first = %+v, second = %+v", first, second)
	}

	rec.Fingerprint = "v2"
	c.Suggest(context.Background(), rec)
	if calls != 2 {
		t.Errorf("changed file should ask again, calls = %d", calls)
	}
}

func TestCached_NeverStoresFallback(t *testing.T) {
	calls := 0
	next := counting(models.Fallback, &calls)
	cache := memCache{}
	c := NewCached(next, cache, quiet())
	rec := models.FileRecord{Path: "/x/a.txt", Name: "a.txt", Fingerprint: "v1"}

	c.Suggest(context.Background(), rec)
	c.Suggest(context.Background(), rec)
	if calls != 2 || len(cache) != 0 {
		t.Errorf("calls = %d, cache = %v", calls, cache)
	}
}
