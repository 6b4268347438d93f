// Package preview extracts a short text excerpt from a file for the
// suggestion prompt.
package preview

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultChars bounds a preview when the caller passes a non-positive limit.
const DefaultChars = 500

// extractor reads at most max runes of text from one kind of file.
type extractor func(path string, max int) (string, error)

var extractors = map[string]extractor{
	".txt":  extractText,
	".md":   extractText,
	".log":  extractText,
	".csv":  extractText,
	".json": extractText,
	".yaml": extractText,
	".yml":  extractText,
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".png":  extractImage,
	".jpg":  extractImage,
	".jpeg": extractImage,
	".bmp":  extractImage,
	".tiff": extractImage,
}

// Supported reports whether a preview can be produced for the file name.
func Supported(name string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extract returns at most max runes of readable text from path. Unsupported
// and binary files yield an empty preview without error.
func Extract(path string, max int) (string, error) {
	if max <= 0 {
		max = DefaultChars
	}
	extract, ok := extractors[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", nil
	}
	text, err := extract(path, max)
	if err != nil {
		return "", err
	}
	return truncate(clean(text), max), nil
}

func extractText(path string, max int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("preview: open: %w", err)
	}
	defer f.Close()

	// Frontmatter may precede the body, so read more than the preview needs.
	data, err := io.ReadAll(io.LimitReader(f, int64(max)*8+4096))
	if err != nil {
		return "", fmt.Errorf("preview: read: %w", err)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "", nil
	}
	if strings.EqualFold(filepath.Ext(path), ".md") {
		return parseMarkdown(data).text(), nil
	}
	return string(data), nil
}

// clean drops invalid UTF-8 and control characters other than line breaks and tabs.
func clean(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
