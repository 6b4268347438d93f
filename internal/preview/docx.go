package preview

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const docxBody = "word/document.xml"

// extractDOCX joins the paragraphs of the main document part, one per line.
func extractDOCX(path string, max int) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("preview: docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("preview: docx: %w", err)
		}
		defer rc.Close()
		return docxParagraphs(rc, max)
	}
	return "", fmt.Errorf("preview: docx: %s missing", docxBody)
}

// docxParagraphs collects w:t runs, turning w:p ends and w:br into line
// breaks and w:tab into tabs. It stops once max runes are collected.
func docxParagraphs(r io.Reader, max int) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		sb     strings.Builder
		inText bool
	)
	for utf8.RuneCountInString(sb.String()) < max {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("preview: docx: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
