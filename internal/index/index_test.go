package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func rec(path, fp string) models.FileRecord {
	return models.FileRecord{
		Path:        path,
		Name:        path[1:],
		SizeBytes:   42,
		ModifiedAt:  time.Unix(1700000000, 0),
		Preview:     "quarterly invoice for " + path,
		Fingerprint: fp,
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files`).Scan(&count); err != nil {
		t.Fatalf("files table missing: %v", err)
	}
}

func TestOpen_Memory(t *testing.T) {
	db, err := Open(Memory)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.UpsertFile(rec("/a.txt", "fp1")); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	// A second statement must see the same database.
	if _, total, err := db.ListFiles(10, 0); err != nil || total != 1 {
		t.Errorf("ListFiles total = %d, err = %v", total, err)
	}
}

func TestUpsertAndGetFile(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertFile(rec("/a.txt", "fp1")); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	f, err := db.GetFile("/a.txt")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if f.Name != "a.txt" || f.SizeBytes != 42 || f.Fingerprint != "fp1" {
		t.Errorf("row = %+v", f)
	}
	if !f.ModifiedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("modified = %v", f.ModifiedAt)
	}
	if f.Suggestion != nil {
		t.Error("fresh row has a suggestion")
	}
}

func TestGetFile_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetFile("/missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSuggestionCache(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFile(rec("/a.txt", "fp1"))

	sug := models.Suggestion{Name: "invoice.txt", Folder: "Finance", Source: models.SourceModel}
	if err := db.StoreSuggestion("/a.txt", "fp1", sug); err != nil {
		t.Fatalf("StoreSuggestion: %v", err)
	}

	got, ok, err := db.CachedSuggestion("/a.txt", "fp1")
	if err != nil || !ok {
		t.Fatalf("CachedSuggestion = %v, %v", ok, err)
	}
	if got.Name != "invoice.txt" || got.Folder != "Finance" || got.Source != models.SourceCache {
		t.Errorf("cached = %+v", got)
	}

	if _, ok, _ := db.CachedSuggestion("/a.txt", "other"); ok {
		t.Error("cache hit for a different fingerprint")
	}
}

func TestSuggestionCache_InvalidatedByChange(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFile(rec("/a.txt", "fp1"))
	_ = db.StoreSuggestion("/a.txt", "fp1", models.Suggestion{Delete: true, Source: models.SourceModel})

	// Same version again keeps the cache.
	_ = db.UpsertFile(rec("/a.txt", "fp1"))
	if _, ok, _ := db.CachedSuggestion("/a.txt", "fp1"); !ok {
		t.Fatal("cache lost on unchanged upsert")
	}

	_ = db.UpsertFile(rec("/a.txt", "fp2"))
	f, _ := db.GetFile("/a.txt")
	if f.Suggestion != nil {
		t.Errorf("suggestion survived a content change: %+v", f.Suggestion)
	}
	if _, ok, _ := db.CachedSuggestion("/a.txt", "fp1"); ok {
		t.Error("stale fingerprint still cached")
	}
}

func TestStoreSuggestion_SkipsFallback(t *testing.T) {
	db := testDB(t)
	r := rec("/a.txt", "fp1")
	_ = db.UpsertFile(r)
	_ = db.StoreSuggestion(r.Path, r.Fingerprint, models.Fallback(r))
	if _, ok, _ := db.CachedSuggestion(r.Path, r.Fingerprint); ok {
		t.Error("fallback was cached")
	}
}

func TestListFiles(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"/c", "/a", "/b"} {
		_ = db.UpsertFile(rec(p, "x"))
	}
	rows, total, err := db.ListFiles(2, 0)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if total != 3 || len(rows) != 2 || rows[0].Path != "/a" || rows[1].Path != "/b" {
		t.Errorf("rows = %v, total = %d", rows, total)
	}
}

func TestPrune(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFile(rec("/keep", "1"))
	_ = db.UpsertFile(rec("/gone", "2"))

	n, err := db.Prune(map[string]struct{}{"/keep": {}})
	if err != nil || n != 1 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
	if _, err := db.GetFile("/gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("stale row survived")
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_ = db.UpsertFile(rec("/old", "1"))

	if err := Sync(db, []models.FileRecord{rec("/new", "2")}, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	fps, _ := db.AllFingerprints()
	if len(fps) != 1 || fps["/new"] != "2" {
		t.Errorf("fingerprints = %v", fps)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFile(rec("/invoice.pdf", "1"))
	_ = db.UpsertFile(models.FileRecord{Path: "/photo.jpg", Name: "photo.jpg", Fingerprint: "2"})

	results, err := db.Search("quarterly", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "/invoice.pdf" {
		t.Errorf("results = %v", results)
	}
}

func TestSearch_AllWordsMustMatch(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFile(models.FileRecord{Path: "/a.txt", Name: "a.txt", Preview: "quarterly invoice from acme", Fingerprint: "a"})
	_ = db.UpsertFile(models.FileRecord{Path: "/b.txt", Name: "b.txt", Preview: "quarterly report", Fingerprint: "b"})

	tests := []struct {
		query string
		want  int
	}{
		{"quarterly", 2},
		{"quarterly invoice", 1},
		{"quart", 2},
		{"invoice-acme", 1},
		{`"acme" OR`, 0},
		{"  ", 0},
		{"%", 0},
	}
	for _, tt := range tests {
		results, err := db.Search(tt.query, 10)
		if err != nil {
			t.Errorf("Search(%q): %v", tt.query, err)
			continue
		}
		if len(results) != tt.want {
			t.Errorf("Search(%q) = %d results, want %d", tt.query, len(results), tt.want)
		}
	}
}

func TestSearchTerms(t *testing.T) {
	got := searchTerms("Invoice_2025-03.pdf  acme")
	want := []string{"Invoice", "2025", "03", "pdf", "acme"}
	if len(got) != len(want) {
		t.Fatalf("terms = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("terms[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
