package index

import "github.com/starford/raido/internal/models"

// Catalog defines the index operations used by the organizer and its
// surfaces. Consumers depend on this interface rather than *DB.
type Catalog interface {
	UpsertFile(rec models.FileRecord) error
	GetFile(path string) (*FileRow, error)
	ListFiles(limit, offset int) ([]FileRow, int, error)
	DeleteFile(path string) error
	Prune(present map[string]struct{}) (int, error)
	AllFingerprints() (map[string]string, error)
	StoreSuggestion(path, fingerprint string, sug models.Suggestion) error
	CachedSuggestion(path, fingerprint string) (models.Suggestion, bool, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
