package applier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/testutil"
)

// failingMove wraps the local provider and breaks Move.
type failingMove struct {
	*storage.FS
	err error
}

func (f failingMove) Move(string, string) error { return f.err }

func newAuto(opts ...Option) *Applier {
	return New(storage.NewFS(), append([]Option{WithConfirmer(AutoConfirm())}, opts...)...)
}

func TestApply_NoopSameNameNoFolder(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "note.txt")
	testutil.WriteFile(t, p, "hello")

	asked := false
	a := New(storage.NewFS(), WithConfirmer(ConfirmFunc(func(context.Context, Request) (bool, error) {
		asked = true
		return true, nil
	})))

	out := a.Apply(context.Background(), testutil.Record(t, p), models.Suggestion{Name: "note.txt"})
	if out.Kind != KindSkipped || out.Reason != ReasonNoop {
		t.Fatalf("outcome = %v, want skipped no-op", out)
	}
	if asked {
		t.Error("no-op must not prompt")
	}
	if testutil.ReadFile(t, p) != "hello" {
		t.Error("file changed")
	}
}

func TestApply_RenameAndMoveCreatesDir(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "note.txt")
	testutil.WriteFile(t, p, "hello")

	out := newAuto().Apply(context.Background(), testutil.Record(t, p),
		models.Suggestion{Name: "renamed.txt", Folder: "subdir"})

	want := filepath.Join(inbox, "subdir", "renamed.txt")
	if out.Kind != KindMoved || out.From != p || out.To != want {
		t.Fatalf("outcome = %v, want moved to %s", out, want)
	}
	if testutil.ReadFile(t, want) != "hello" {
		t.Error("content lost")
	}
	if testutil.Exists(p) {
		t.Error("source still present")
	}
}

func TestApply_Delete(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "installer.dmg")
	testutil.WriteFile(t, p, "bin")
	rec := testutil.Record(t, p)
	a := newAuto()

	out := a.Apply(context.Background(), rec, models.Suggestion{Delete: true})
	if out.Kind != KindDeleted {
		t.Fatalf("outcome = %v, want deleted", out)
	}
	if testutil.Exists(p) {
		t.Error("file still present")
	}

	// Already gone: still Deleted, no error.
	out = a.Apply(context.Background(), rec, models.Suggestion{Delete: true})
	if out.Kind != KindDeleted || out.Err != nil {
		t.Errorf("second delete = %v, want deleted without error", out)
	}
}

func TestApply_DeleteSkipsChangedFile(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, path string)
	}{
		{"rewritten", func(t *testing.T, path string) {
			testutil.WriteFile(t, path, "completely different content")
		}},
		{"touched", func(t *testing.T, path string) {
			later := time.Now().Add(time.Hour)
			if err := os.Chtimes(path, later, later); err != nil {
				t.Fatal(err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inbox := testutil.TestInbox(t)
			p := filepath.Join(inbox, "old.log")
			testutil.WriteFile(t, p, "stale")
			rec := testutil.Record(t, p)
			tt.modify(t, p)

			out := newAuto().Apply(context.Background(), rec, models.Suggestion{Delete: true})
			if out.Kind != KindSkipped || out.Reason != ReasonChanged {
				t.Fatalf("outcome = %v, want skipped changed", out)
			}
			if !testutil.Exists(p) {
				t.Error("changed file was deleted")
			}
		})
	}
}

func TestApply_DeleteRechecksAfterConfirm(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "old.log")
	testutil.WriteFile(t, p, "stale")

	a := New(storage.NewFS(), WithConfirmer(ConfirmFunc(func(context.Context, Request) (bool, error) {
		testutil.WriteFile(t, p, "written while the question was open")
		return true, nil
	})))
	out := a.Apply(context.Background(), testutil.Record(t, p), models.Suggestion{Delete: true})
	if out.Reason != ReasonChanged || !testutil.Exists(p) {
		t.Fatalf("outcome = %v, exists = %v; want skipped changed and file kept", out, testutil.Exists(p))
	}
}

func TestApply_ConflictLeavesBothFiles(t *testing.T) {
	root := testutil.TestInbox(t)
	inbox := testutil.TestInbox(t)
	src := filepath.Join(inbox, "x.txt")
	existing := filepath.Join(root, "a", "x.txt")
	testutil.WriteFile(t, src, "new")
	testutil.WriteFile(t, existing, "old")

	out := newAuto(WithRoot(root)).Apply(context.Background(), testutil.Record(t, src),
		models.Suggestion{Name: "x.txt", Folder: "a"})

	if out.Kind != KindConflict {
		t.Fatalf("outcome = %v, want conflict", out)
	}
	if !errors.Is(out.Err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", out.Err)
	}
	if testutil.ReadFile(t, src) != "new" || testutil.ReadFile(t, existing) != "old" {
		t.Error("a file was touched")
	}
}

func TestApply_SuffixPolicy(t *testing.T) {
	inbox := testutil.TestInbox(t)
	src := filepath.Join(inbox, "in.txt")
	testutil.WriteFile(t, src, "new")
	testutil.WriteFile(t, filepath.Join(inbox, "docs", "report.txt"), "a")
	testutil.WriteFile(t, filepath.Join(inbox, "docs", "report (1).txt"), "b")

	out := newAuto(WithConflictPolicy(ConflictSuffix)).Apply(context.Background(),
		testutil.Record(t, src), models.Suggestion{Name: "report.txt", Folder: "docs"})

	want := filepath.Join(inbox, "docs", "report (2).txt")
	if out.Kind != KindMoved || out.To != want {
		t.Fatalf("outcome = %v, want moved to %s", out, want)
	}
	if testutil.ReadFile(t, want) != "new" {
		t.Error("content lost")
	}
}

func TestApply_SuffixPolicyIdempotent(t *testing.T) {
	inbox := testutil.TestInbox(t)
	src := filepath.Join(inbox, "in.txt")
	testutil.WriteFile(t, src, "new")
	testutil.WriteFile(t, filepath.Join(inbox, "docs", "report.txt"), "taken")

	prompts := 0
	a := New(storage.NewFS(),
		WithRoot(inbox),
		WithConflictPolicy(ConflictSuffix),
		WithConfirmer(ConfirmFunc(func(context.Context, Request) (bool, error) {
			prompts++
			return true, nil
		})))
	sug := models.Suggestion{Name: "report.txt", Folder: "docs"}

	first := a.Apply(context.Background(), testutil.Record(t, src), sug)
	want := filepath.Join(inbox, "docs", "report (1).txt")
	if first.Kind != KindMoved || first.To != want {
		t.Fatalf("first = %v, want moved to %s", first, want)
	}
	for i := 0; i < 2; i++ {
		again := a.Apply(context.Background(), testutil.Record(t, want), sug)
		if again.Kind != KindSkipped || again.Reason != ReasonNoop {
			t.Fatalf("re-apply %d = %v, want skipped no-op", i+1, again)
		}
	}
	if prompts != 1 {
		t.Errorf("prompts = %d, want 1", prompts)
	}
	if testutil.ReadFile(t, want) != "new" || testutil.ReadFile(t, filepath.Join(inbox, "docs", "report.txt")) != "taken" {
		t.Error("files changed on re-apply")
	}
}

func TestApply_Idempotent(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "note.txt")
	testutil.WriteFile(t, p, "hello")
	sug := models.Suggestion{Name: "renamed.txt"}
	a := newAuto()

	first := a.Apply(context.Background(), testutil.Record(t, p), sug)
	if first.Kind != KindMoved {
		t.Fatalf("first = %v", first)
	}

	second := a.Apply(context.Background(), testutil.Record(t, first.To), sug)
	if second.Kind != KindSkipped || second.Reason != ReasonNoop {
		t.Fatalf("second = %v, want skipped no-op", second)
	}
	if testutil.ReadFile(t, first.To) != "hello" {
		t.Error("file changed on re-apply")
	}
}

func TestApply_IdempotentUnderRoot(t *testing.T) {
	root := testutil.TestInbox(t)
	p := filepath.Join(root, "Docs", "a.txt")
	testutil.WriteFile(t, p, "x")

	out := newAuto(WithRoot(root+string(os.PathSeparator))).Apply(context.Background(),
		testutil.Record(t, p), models.Suggestion{Name: "a.txt", Folder: "Docs/"})
	if out.Kind != KindSkipped || out.Reason != ReasonNoop {
		t.Fatalf("outcome = %v, want skipped no-op", out)
	}
}

func TestApply_DeletePrecedence(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "junk.tmp")
	testutil.WriteFile(t, p, "x")

	out := newAuto().Apply(context.Background(), testutil.Record(t, p),
		models.Suggestion{Name: "keep.txt", Folder: "Archive", Delete: true})
	if out.Kind != KindDeleted {
		t.Fatalf("outcome = %v, want deleted", out)
	}
	if testutil.Exists(filepath.Join(inbox, "Archive")) {
		t.Error("placement fields must be ignored")
	}
}

func TestApply_FallbackNeverDeletes(t *testing.T) {
	root := testutil.TestInbox(t)
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "report.pdf")
	testutil.WriteFile(t, p, "x")
	rec := testutil.Record(t, p)

	out := newAuto(WithRoot(root)).Apply(context.Background(), rec, models.Fallback(rec))
	if out.Kind != KindSkipped || out.Reason != ReasonNoop {
		t.Fatalf("outcome = %v, want skipped no-op", out)
	}
	if !testutil.Exists(p) {
		t.Error("fallback removed the file")
	}
}

func TestApply_MoveFailureKeepsSource(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "note.txt")
	testutil.WriteFile(t, p, "hello")

	store := failingMove{FS: storage.NewFS(), err: errors.New("disk on fire")}
	a := New(store, WithConfirmer(AutoConfirm()))

	out := a.Apply(context.Background(), testutil.Record(t, p),
		models.Suggestion{Name: "renamed.txt", Folder: "new/deep"})
	if out.Kind != KindFailed {
		t.Fatalf("outcome = %v, want failed", out)
	}
	if testutil.ReadFile(t, p) != "hello" {
		t.Error("source lost")
	}
	if testutil.Exists(filepath.Join(inbox, "new")) {
		t.Error("directories created for the failed move should be removed")
	}
}

func TestApply_Declined(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "a.txt")
	testutil.WriteFile(t, p, "x")

	var got Request
	a := New(storage.NewFS(), WithConfirmer(ConfirmFunc(func(_ context.Context, req Request) (bool, error) {
		got = req
		return false, nil
	})))

	out := a.Apply(context.Background(), testutil.Record(t, p), models.Suggestion{Name: "b.txt", Folder: "sub"})
	if out.Kind != KindSkipped || out.Reason != ReasonDeclined {
		t.Fatalf("outcome = %v, want declined", out)
	}
	if len(got.Actions) != 2 || got.Actions[0] != ActionRename || got.Actions[1] != ActionMove {
		t.Errorf("actions = %v", got.Actions)
	}
	desc := got.Describe()
	if !strings.Contains(desc, "rename to 'b.txt'") || !strings.Contains(desc, "move to") {
		t.Errorf("Describe = %q", desc)
	}
	if !testutil.Exists(p) || testutil.Exists(filepath.Join(inbox, "sub")) {
		t.Error("declined action touched the filesystem")
	}
}

func TestApply_CancelledWhileConfirming(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "a.txt")
	testutil.WriteFile(t, p, "x")

	ctx, cancel := context.WithCancel(context.Background())
	a := New(storage.NewFS(), WithConfirmer(ConfirmFunc(func(ctx context.Context, _ Request) (bool, error) {
		cancel()
		<-ctx.Done()
		return false, ctx.Err()
	})))

	out := a.Apply(ctx, testutil.Record(t, p), models.Suggestion{Delete: true})
	if out.Kind != KindSkipped || out.Reason != ReasonCancelled {
		t.Fatalf("outcome = %v, want cancelled", out)
	}
	if !testutil.Exists(p) {
		t.Error("file deleted after cancellation")
	}
}

func TestApply_ConfirmerErrorFails(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "a.txt")
	testutil.WriteFile(t, p, "x")

	a := New(storage.NewFS(), WithConfirmer(ConfirmFunc(func(context.Context, Request) (bool, error) {
		return false, errors.New("tty gone")
	})))
	out := a.Apply(context.Background(), testutil.Record(t, p), models.Suggestion{Delete: true})
	if out.Kind != KindFailed || !testutil.Exists(p) {
		t.Fatalf("outcome = %v, want failed with file intact", out)
	}
}

func TestApply_MoveSourceVanished(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "a.txt")
	testutil.WriteFile(t, p, "x")
	rec := testutil.Record(t, p)
	os.Remove(p)

	out := newAuto().Apply(context.Background(), rec, models.Suggestion{Name: "b.txt"})
	if out.Kind != KindSkipped || out.Reason != ReasonNotFound {
		t.Fatalf("outcome = %v, want skipped not-found", out)
	}
}

func TestApply_PathEscapeNormalized(t *testing.T) {
	root := testutil.TestInbox(t)
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "a.txt")
	testutil.WriteFile(t, p, "x")

	out := newAuto(WithRoot(root)).Apply(context.Background(), testutil.Record(t, p),
		models.Suggestion{Name: "../../evil.txt", Folder: "../../etc"})
	if out.Kind != KindSkipped || out.Reason != ReasonNoop {
		t.Fatalf("outcome = %v, want skipped no-op", out)
	}
	if !testutil.Exists(p) {
		t.Error("file moved")
	}
}

func TestApply_AbsoluteFolderStaysUnderRoot(t *testing.T) {
	root := testutil.TestInbox(t)
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "cv.pdf")
	testutil.WriteFile(t, p, "x")

	out := newAuto(WithRoot(root)).Apply(context.Background(), testutil.Record(t, p),
		models.Suggestion{Folder: "/Documents/Resumes/"})
	want := filepath.Join(root, "Documents", "Resumes", "cv.pdf")
	if out.Kind != KindMoved || out.To != want {
		t.Fatalf("outcome = %v, want moved to %s", out, want)
	}
}

func TestApply_EmptyFolderWithRootPlacesAtRoot(t *testing.T) {
	root := testutil.TestInbox(t)
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "a.txt")
	testutil.WriteFile(t, p, "x")

	out := newAuto(WithRoot(root)).Apply(context.Background(), testutil.Record(t, p), models.Suggestion{})
	if out.Kind != KindMoved || out.To != filepath.Join(root, "a.txt") {
		t.Fatalf("outcome = %v, want moved to root", out)
	}
}

func TestApply_DirectoryRefused(t *testing.T) {
	inbox := testutil.TestInbox(t)
	dir := filepath.Join(inbox, "folder")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	rec := models.FileRecord{Path: dir, Name: "folder"}

	out := newAuto().Apply(context.Background(), rec, models.Suggestion{Delete: true})
	if out.Kind != KindFailed || !errors.Is(out.Err, apperr.ErrNotRegular) {
		t.Fatalf("outcome = %v, want failed ErrNotRegular", out)
	}
	if !testutil.Exists(dir) {
		t.Error("directory removed")
	}
}

func TestApply_DefaultDeclines(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "a.txt")
	testutil.WriteFile(t, p, "x")

	out := New(storage.NewFS()).Apply(context.Background(), testutil.Record(t, p), models.Suggestion{Delete: true})
	if out.Reason != ReasonDeclined {
		t.Fatalf("outcome = %v, want declined", out)
	}
}

func TestOutcome_JSONCarriesError(t *testing.T) {
	o := failed("/x", errors.New("boom"))
	data, err := o.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"error":"boom"`) || !strings.Contains(string(data), `"kind":"failed"`) {
		t.Errorf("json = %s", data)
	}
}
