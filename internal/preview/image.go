//go:build !ocr

package preview

// extractImage yields no text unless raido is built with the ocr tag.
func extractImage(string, int) (string, error) {
	return "", nil
}
