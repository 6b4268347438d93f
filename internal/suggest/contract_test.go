package suggest

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.Suggestion
	}{
		{
			name: "bare object",
			raw:  `{"suggested_name": "a.pdf", "suggested_folder": "Docs", "delete": false}`,
			want: models.Suggestion{Name: "a.pdf", Folder: "Docs"},
		},
		{
			name: "fenced block",
			raw:  "```json\n{\"suggested_name\": \"a.pdf\", \"suggested_folder\": \"Docs/Taxes\", \"delete\": false}\n```",
			want: models.Suggestion{Name: "a.pdf", Folder: "Docs/Taxes"},
		},
		{
			name: "surrounded by prose",
			raw:  `Sure! Here you go: {"suggested_name": "b.txt", "suggested_folder": "", "delete": false} Hope that helps.`,
			want: models.Suggestion{Name: "b.txt"},
		},
		{
			name: "delete",
			raw:  `{"suggested_name": "x.dmg", "suggested_folder": "Installers", "delete": true}`,
			want: models.Suggestion{Name: "x.dmg", Folder: "Installers", Delete: true},
		},
		{
			name: "string true does not delete",
			raw:  `{"suggested_name": "x", "suggested_folder": "y", "delete": "true"}`,
			want: models.Suggestion{Name: "x", Folder: "y"},
		},
		{
			name: "missing folder means base",
			raw:  `{"suggested_name": "x.txt"}`,
			want: models.Suggestion{Name: "x.txt"},
		},
		{
			name: "numeric folder keeps directory",
			raw:  `{"suggested_name": "x.txt", "suggested_folder": 7}`,
			want: models.Suggestion{Name: "x.txt", KeepFolder: true},
		},
		{
			name: "wrong typed fields keep as is",
			raw:  `{"suggested_name": 42, "suggested_folder": null, "delete": 1}`,
			want: models.Suggestion{KeepFolder: true},
		},
		{
			name: "escaping folder keeps directory",
			raw:  `{"suggested_name": "x.txt", "suggested_folder": "../../etc"}`,
			want: models.Suggestion{Name: "x.txt", KeepFolder: true},
		},
		{
			name: "braces inside strings",
			raw:  `{"suggested_name": "notes {draft}.txt", "suggested_folder": "A"}`,
			want: models.Suggestion{Name: "notes {draft}.txt", Folder: "A"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.raw)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			tt.want.Source = models.SourceModel
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"suggested_name": "x"`, `{"a": }`} {
		if _, err := Decode(raw); !errors.Is(err, apperr.ErrMalformedSuggestion) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformedSuggestion", raw, err)
		}
	}
}

func TestStatic(t *testing.T) {
	p := Static(models.Suggestion{Name: " a.txt ", Folder: "/Docs/"})
	got := p.Suggest(context.Background(), models.FileRecord{})
	if got.Name != "a.txt" || got.Folder != "Docs" {
		t.Errorf("Static = %+v", got)
	}
}
