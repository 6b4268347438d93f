package suggest

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/raido/internal/models"
)

const systemPrompt = `You are a smart file organizer assistant. Based on the file metadata and content preview, suggest a better filename, a target folder (relative to an organizational root), and whether the file should be deleted.`

const contractPrompt = `Return a JSON object with keys:
- suggested_name: string (new filename, keep the extension)
- suggested_folder: string (folder path relative to the organizational root, "" for the root itself)
- delete: boolean (true only if the file is clearly safe to delete)

Example output:
{"suggested_name": "Resume_2025_JohnSmith.pdf", "suggested_folder": "Documents/Resumes", "delete": false}`

// BuildPrompt renders the user message for one record. custom is appended
// as additional operator instructions when non-empty.
func BuildPrompt(rec models.FileRecord, custom string) string {
	var b strings.Builder
	b.WriteString("File metadata:\n")
	fmt.Fprintf(&b, "Name: %s\n", rec.Name)
	fmt.Fprintf(&b, "Size (bytes): %d\n", rec.SizeBytes)
	fmt.Fprintf(&b, "Created: %s\n", formatTime(rec.CreatedAt))
	fmt.Fprintf(&b, "Modified: %s\n", formatTime(rec.ModifiedAt))
	fmt.Fprintf(&b, "Content preview: %q\n\n", rec.Preview)
	b.WriteString(contractPrompt)
	if custom = strings.TrimSpace(custom); custom != "" {
		b.WriteString("\n\nAdditional instructions:\n")
		b.WriteString(custom)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}
