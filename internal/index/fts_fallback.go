//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the files table itself is searched, so there is nothing to
// maintain on write.
func initFTS(*sql.DB) error                           { return nil }
func ftsUpsert(*sql.Tx, string, string, string) error { return nil }
func ftsDelete(*sql.Tx, string)                       {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches files whose name or preview contains every word.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	conds := make([]string, 0, len(terms))
	args := make([]any, 0, 2*len(terms)+1)
	for _, t := range terms {
		pattern := "%" + likeEscaper.Replace(t) + "%"
		conds = append(conds, `(name LIKE ? ESCAPE '\' OR preview LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT path, name, substr(preview, 1, 200)
		FROM files
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY modified_at DESC, path
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
