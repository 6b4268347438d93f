// Package models defines the domain types for raido.
package models

import (
	"path/filepath"
	"time"
)

// FileRecord is a read-only snapshot of one file taken at scan time.
// It goes stale as soon as the file changes; consumers re-validate the
// path before acting on it.
type FileRecord struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_time"`
	ModifiedAt  time.Time `json:"modified_time"`
	Preview     string    `json:"preview"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// Dir returns the directory that held the file at scan time.
func (r FileRecord) Dir() string {
	return filepath.Dir(r.Path)
}
