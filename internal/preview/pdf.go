package preview

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const pdfPages = 2

// extractPDF reads the text layer of the first pages. Scanned PDFs without
// one yield an empty preview.
func extractPDF(path string, max int) (text string, err error) {
	// The parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("preview: pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return "", fmt.Errorf("preview: pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage() && i <= pdfPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("preview: pdf page %d: %w", i, err)
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(content)
		if utf8.RuneCountInString(sb.String()) >= max {
			break
		}
	}
	return sb.String(), nil
}
