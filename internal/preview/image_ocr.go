//go:build ocr

package preview

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// extractImage runs Tesseract OCR over the image.
func extractImage(path string, _ int) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(path); err != nil {
		return "", fmt.Errorf("preview: ocr: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("preview: ocr: %w", err)
	}
	return text, nil
}
