package index

import (
	"database/sql"
	"strings"
	"unicode"
)

const defaultSearchLimit = 20

// searchTerms splits free text into words. Punctuation separates terms, so
// "invoice-2025.pdf" searches for invoice, 2025 and pdf.
func searchTerms(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Name, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
