package models

import (
	"path"
	"strings"
)

// SuggestionSource tells where a suggestion came from.
type SuggestionSource string

const (
	SourceModel    SuggestionSource = "model"
	SourceCache    SuggestionSource = "cache"
	SourceFallback SuggestionSource = "fallback"
)

// Suggestion is advisory data describing what to do with one file.
//
// An empty Name keeps the current name. An empty Folder places the file at
// the base directory (the organizational root when configured, otherwise the
// file's own directory). KeepFolder overrides Folder and keeps the file in
// the directory it was found in. Delete takes precedence over everything.
type Suggestion struct {
	Name       string           `json:"suggested_name"`
	Folder     string           `json:"suggested_folder"`
	Delete     bool             `json:"delete"`
	KeepFolder bool             `json:"keep_folder,omitempty"`
	Source     SuggestionSource `json:"source,omitempty"`
}

// Fallback returns the strict no-op suggestion for rec.
func Fallback(rec FileRecord) Suggestion {
	return Suggestion{
		Name:       rec.Name,
		KeepFolder: true,
		Source:     SourceFallback,
	}
}

// Normalized returns a copy with untrusted fields reduced to safe values.
// It performs no I/O.
func (s Suggestion) Normalized() Suggestion {
	out := s
	out.Name = normalizeName(s.Name)

	if s.KeepFolder {
		out.Folder = ""
		return out
	}
	folder, ok := normalizeFolder(s.Folder)
	if !ok {
		out.Folder = ""
		out.KeepFolder = true
		return out
	}
	out.Folder = folder
	return out
}

// IsNoop reports whether the suggestion asks to keep both name and folder.
func (s Suggestion) IsNoop(current string) bool {
	n := s.Normalized()
	return !n.Delete && n.KeepFolder && (n.Name == "" || n.Name == current)
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return ""
	}
	return name
}

// normalizeFolder cleans a folder so it is always relative to its base.
// ok is false when the folder would climb out of the base.
func normalizeFolder(folder string) (string, bool) {
	folder = strings.TrimSpace(folder)
	if strings.ContainsRune(folder, 0) {
		return "", false
	}
	folder = strings.ReplaceAll(folder, `\`, "/")
	folder = strings.TrimLeft(folder, "/")
	if folder == "" {
		return "", true
	}
	cleaned := path.Clean(folder)
	if cleaned == "." {
		return "", true
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
