// Package storage holds the filesystem primitives the applier is allowed to use.
package storage

import "io/fs"

// TempPrefix marks in-flight copies created by Move. Scanners and watchers
// ignore files carrying it.
const TempPrefix = ".raido-tmp-"

// Provider is the interface for organizing file operations.
type Provider interface {
	// Join resolves rel beneath base and rejects any result outside base,
	// including one reached through a symbolic link.
	Join(base, rel string) (string, error)
	// SameDir reports whether a and b name the same directory.
	SameDir(a, b string) bool
	// Lstat describes path without following a final symbolic link.
	Lstat(path string) (fs.FileInfo, error)
	// MkdirAll creates dir and any missing parents. It returns the top-most
	// directory it had to create, or "" when dir already existed.
	MkdirAll(dir string) (string, error)
	// RemoveEmpty removes dir and its empty parents, stopping after top.
	RemoveEmpty(dir, top string)
	// Remove deletes a single file.
	Remove(path string) error
	// Move relocates src to dst without ever replacing an existing dst.
	// On failure src is left where it was.
	Move(src, dst string) error
}
