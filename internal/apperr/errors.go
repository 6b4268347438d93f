// Package apperr defines the sentinel errors shared across raido packages.
package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPathEscape  = errors.New("path escapes base directory")
	ErrInvalidName = errors.New("invalid file name")
	ErrNotRegular  = errors.New("not a regular file")
	ErrBusy        = errors.New("organizer pass already running")

	// ErrMalformedSuggestion is returned when a model reply holds no usable
	// suggestion. It is absorbed by the fallback path and never reaches the
	// applier.
	ErrMalformedSuggestion = errors.New("malformed suggestion")
)
