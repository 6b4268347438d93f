package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path        string
	Name        string
	SizeBytes   int64
	ModifiedAt  time.Time
	Fingerprint string
	Preview     string
	// Suggestion is the cached suggestion for this fingerprint, if any.
	Suggestion  *models.Suggestion
	SuggestedAt time.Time
	SeenAt      time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Name    string
	Snippet string
}

const fileColumns = `path, name, size, modified_at, fingerprint, preview,
	suggested_name, suggested_folder, suggest_delete, keep_folder, suggested_at, seen_at`

// UpsertFile records an observed file. A changed fingerprint invalidates the
// cached suggestion.
func (db *DB) UpsertFile(rec models.FileRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO files (path, name, size, modified_at, fingerprint, preview, seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name             = excluded.name,
			size             = excluded.size,
			modified_at      = excluded.modified_at,
			preview          = excluded.preview,
			seen_at          = excluded.seen_at,
			suggested_name   = CASE WHEN fingerprint = excluded.fingerprint THEN suggested_name ELSE NULL END,
			suggested_folder = CASE WHEN fingerprint = excluded.fingerprint THEN suggested_folder ELSE NULL END,
			suggest_delete   = CASE WHEN fingerprint = excluded.fingerprint THEN suggest_delete ELSE 0 END,
			keep_folder      = CASE WHEN fingerprint = excluded.fingerprint THEN keep_folder ELSE 0 END,
			suggested_at     = CASE WHEN fingerprint = excluded.fingerprint THEN suggested_at ELSE NULL END,
			fingerprint      = excluded.fingerprint
	`, rec.Path, rec.Name, rec.SizeBytes, rec.ModifiedAt.UTC(), rec.Fingerprint, rec.Preview, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, rec.Path, rec.Name, rec.Preview); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteFile removes a file and its FTS entry.
func (db *DB) DeleteFile(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete file: %w", err)
	}
	return tx.Commit()
}

// GetFile returns one catalog row or apperr.ErrNotFound.
func (db *DB) GetFile(path string) (*FileRow, error) {
	row := db.conn.QueryRow(`SELECT `+fileColumns+` FROM files WHERE path = ?`, path)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get file: %w", err)
	}
	return f, nil
}

// ListFiles returns a page of files ordered by path and the total count.
func (db *DB) ListFiles(limit, offset int) ([]FileRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count files: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+fileColumns+` FROM files ORDER BY path LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list files: %w", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *f)
	}
	return out, total, rows.Err()
}

// AllFingerprints returns the stored fingerprint of every cataloged path.
func (db *DB) AllFingerprints() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, fingerprint FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, fp string
		if err := rows.Scan(&p, &fp); err != nil {
			return nil, err
		}
		out[p] = fp
	}
	return out, rows.Err()
}

// Prune removes every row whose path is not in present and returns how many went.
func (db *DB) Prune(present map[string]struct{}) (int, error) {
	known, err := db.AllFingerprints()
	if err != nil {
		return 0, err
	}
	removed := 0
	for p := range known {
		if _, ok := present[p]; ok {
			continue
		}
		if err := db.DeleteFile(p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// StoreSuggestion caches sug for the file version identified by fingerprint.
// Fallback suggestions are not cached, and a stale fingerprint is ignored.
func (db *DB) StoreSuggestion(path, fingerprint string, sug models.Suggestion) error {
	if sug.Source == models.SourceFallback {
		return nil
	}
	_, err := db.conn.Exec(`
		UPDATE files SET
			suggested_name   = ?,
			suggested_folder = ?,
			suggest_delete   = ?,
			keep_folder      = ?,
			suggested_at     = ?
		WHERE path = ? AND fingerprint = ?
	`, sug.Name, sug.Folder, sug.Delete, sug.KeepFolder, time.Now().UTC(), path, fingerprint)
	if err != nil {
		return fmt.Errorf("index: store suggestion: %w", err)
	}
	return nil
}

// CachedSuggestion returns the suggestion stored for path at fingerprint.
func (db *DB) CachedSuggestion(path, fingerprint string) (models.Suggestion, bool, error) {
	var (
		sug    models.Suggestion
		name   sql.NullString
		folder sql.NullString
	)
	err := db.conn.QueryRow(`
		SELECT suggested_name, suggested_folder, suggest_delete, keep_folder
		FROM files
		WHERE path = ? AND fingerprint = ? AND suggested_at IS NOT NULL
	`, path, fingerprint).Scan(&name, &folder, &sug.Delete, &sug.KeepFolder)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Suggestion{}, false, nil
	}
	if err != nil {
		return models.Suggestion{}, false, fmt.Errorf("index: cached suggestion: %w", err)
	}
	sug.Name = name.String
	sug.Folder = folder.String
	sug.Source = models.SourceCache
	return sug, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(s rowScanner) (*FileRow, error) {
	var (
		f           FileRow
		modified    sql.NullTime
		name        sql.NullString
		folder      sql.NullString
		del, keep   bool
		suggestedAt sql.NullTime
	)
	err := s.Scan(&f.Path, &f.Name, &f.SizeBytes, &modified, &f.Fingerprint, &f.Preview,
		&name, &folder, &del, &keep, &suggestedAt, &f.SeenAt)
	if err != nil {
		return nil, err
	}
	f.ModifiedAt = modified.Time
	if suggestedAt.Valid {
		f.SuggestedAt = suggestedAt.Time
		f.Suggestion = &models.Suggestion{
			Name:       name.String,
			Folder:     folder.String,
			Delete:     del,
			KeepFolder: keep,
			Source:     models.SourceCache,
		}
	}
	return &f, nil
}
