// Package suggest produces Suggestions for FileRecords and decodes the
// model's JSON reply into them.
package suggest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Contract keys expected in the model's JSON object.
const (
	KeyName   = "suggested_name"
	KeyFolder = "suggested_folder"
	KeyDelete = "delete"
)

// Decode extracts the suggestion object from a model reply. Bare JSON,
// fenced blocks and JSON surrounded by prose are accepted. A missing
// folder means the base folder; a wrong-typed one keeps the file where it
// is. Only a JSON true deletes.
func Decode(raw string) (models.Suggestion, error) {
	obj, ok := extractJSONObject(stripFence(raw))
	if !ok {
		return models.Suggestion{}, fmt.Errorf("suggest: no JSON object in reply: %w", apperr.ErrMalformedSuggestion)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return models.Suggestion{}, fmt.Errorf("suggest: %v: %w", err, apperr.ErrMalformedSuggestion)
	}

	sug := models.Suggestion{Source: models.SourceModel}
	if name, ok := fields[KeyName].(string); ok {
		sug.Name = name
	}
	switch folder := fields[KeyFolder].(type) {
	case string:
		sug.Folder = folder
	case nil:
		// An absent key means the base folder, like "". An explicit null
		// is a wrong type.
		if _, present := fields[KeyFolder]; present {
			sug.KeepFolder = true
		}
	default:
		sug.KeepFolder = true
	}
	if del, ok := fields[KeyDelete].(bool); ok {
		sug.Delete = del
	}
	return sug.Normalized(), nil
}

func stripFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimLeft(trimmed, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
		trimmed = strings.TrimSpace(trimmed)
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}

// extractJSONObject returns the first balanced {...} in text, skipping
// braces inside strings.
func extractJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escape := false
	for i, r := range text {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escape:
				escape = false
			case r == '\\':
				escape = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
