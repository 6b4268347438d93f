package organizer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/applier"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/scanner"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/suggest"
	"github.com/starford/raido/internal/testutil"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// byName suggests per file name and keeps everything else as is.
func byName(m map[string]models.Suggestion) suggest.Provider {
	return suggest.ProviderFunc(func(_ context.Context, rec models.FileRecord) models.Suggestion {
		if s, ok := m[rec.Name]; ok {
			s.Source = models.SourceModel
			return s
		}
		return models.Fallback(rec)
	})
}

func newOrganizer(inbox string, sp suggest.Provider, opts ...Option) *Organizer {
	sc := scanner.New([]string{inbox}, 100, quiet())
	ap := applier.New(storage.NewFS(), applier.WithConfirmer(applier.AutoConfirm()), applier.WithLogger(quiet()))
	return New(sc, sp, ap, append([]Option{WithLogger(quiet())}, opts...)...)
}

func TestRunPass_AppliesSuggestions(t *testing.T) {
	inbox := testutil.TestInbox(t)
	testutil.WriteFile(t, filepath.Join(inbox, "a.txt"), "alpha")
	testutil.WriteFile(t, filepath.Join(inbox, "b.dmg"), "bin")
	testutil.WriteFile(t, filepath.Join(inbox, "c.txt"), "keep")

	var mu sync.Mutex
	var hooked []applier.Outcome
	o := newOrganizer(inbox, byName(map[string]models.Suggestion{
		"a.txt": {Name: "alpha.txt", Folder: "Docs"},
		"b.dmg": {Delete: true},
	}), WithOutcomeHook(func(out applier.Outcome) {
		mu.Lock()
		hooked = append(hooked, out)
		mu.Unlock()
	}))

	sum, err := o.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if sum.ID == "" || sum.Scanned != 3 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Counts[applier.KindMoved] != 1 || sum.Counts[applier.KindDeleted] != 1 || sum.Counts[applier.KindSkipped] != 1 {
		t.Errorf("counts = %v", sum.Counts)
	}
	if testutil.ReadFile(t, filepath.Join(inbox, "Docs", "alpha.txt")) != "alpha" {
		t.Error("a.txt not moved")
	}
	if testutil.Exists(filepath.Join(inbox, "b.dmg")) {
		t.Error("b.dmg not deleted")
	}
	if !testutil.Exists(filepath.Join(inbox, "c.txt")) {
		t.Error("fallback touched c.txt")
	}
	if len(hooked) != 3 || len(o.Recent(0)) != 3 {
		t.Errorf("hooked %d, recent %d", len(hooked), len(o.Recent(0)))
	}
}

func TestRunPass_DryRun(t *testing.T) {
	inbox := testutil.TestInbox(t)
	p := filepath.Join(inbox, "a.txt")
	testutil.WriteFile(t, p, "x")

	o := newOrganizer(inbox, byName(map[string]models.Suggestion{"a.txt": {Delete: true}}), WithDryRun(true))
	sum, err := o.RunPass(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Counts[applier.KindSkipped] != 1 || !testutil.Exists(p) {
		t.Errorf("dry run changed something: %v", sum.Counts)
	}
	if got := o.Recent(1); len(got) != 1 || got[0].Reason != applier.ReasonDryRun {
		t.Errorf("recent = %v", got)
	}
}

func TestRunPass_SecondPassIsNoop(t *testing.T) {
	inbox := testutil.TestInbox(t)
	testutil.WriteFile(t, filepath.Join(inbox, "a.txt"), "x")
	sug := models.Suggestion{Name: "renamed.txt"}
	o := newOrganizer(inbox, byName(map[string]models.Suggestion{"a.txt": sug, "renamed.txt": sug}))

	if _, err := o.RunPass(context.Background()); err != nil {
		t.Fatal(err)
	}
	sum, err := o.RunPass(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Counts[applier.KindSkipped] != 1 || sum.Counts[applier.KindMoved] != 0 {
		t.Errorf("second pass counts = %v", sum.Counts)
	}
	if got := o.Recent(1)[0]; got.Reason != applier.ReasonNoop {
		t.Errorf("second outcome = %v", got)
	}
}

func TestRunPass_Busy(t *testing.T) {
	inbox := testutil.TestInbox(t)
	testutil.WriteFile(t, filepath.Join(inbox, "a.txt"), "x")

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := suggest.ProviderFunc(func(_ context.Context, rec models.FileRecord) models.Suggestion {
		close(entered)
		<-release
		return models.Fallback(rec)
	})
	o := newOrganizer(inbox, slow)

	done := make(chan error, 1)
	go func() {
		_, err := o.RunPass(context.Background())
		done <- err
	}()
	<-entered

	if !o.Running() {
		t.Error("Running should report the pass in progress")
	}
	if _, err := o.RunPass(context.Background()); !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("overlapping pass err = %v, want ErrBusy", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("first pass: %v", err)
	}
}

func TestRunPass_SyncsCatalog(t *testing.T) {
	inbox := testutil.TestInbox(t)
	testutil.WriteFile(t, filepath.Join(inbox, "report.txt"), "quarterly numbers")
	db := testutil.TestDB(t)

	o := newOrganizer(inbox, byName(nil), WithCatalog(db))
	if _, err := o.RunPass(context.Background()); err != nil {
		t.Fatal(err)
	}
	rows, total, err := db.ListFiles(10, 0)
	if err != nil || total != 1 {
		t.Fatalf("ListFiles = %v, %d, %v", rows, total, err)
	}
	if rows[0].Preview != "quarterly numbers" {
		t.Errorf("preview = %q", rows[0].Preview)
	}
}

func TestRunPass_PassHook(t *testing.T) {
	inbox := testutil.TestInbox(t)
	var started, finished int
	o := newOrganizer(inbox, byName(nil), WithPassHook(func(_ Summary, done bool) {
		if done {
			finished++
		} else {
			started++
		}
	}))
	if _, err := o.RunPass(context.Background()); err != nil {
		t.Fatal(err)
	}
	if started != 1 || finished != 1 {
		t.Errorf("started %d, finished %d", started, finished)
	}
}

func TestPoll_RunsImmediately(t *testing.T) {
	inbox := testutil.TestInbox(t)
	var mu sync.Mutex
	passes := 0
	o := newOrganizer(inbox, byName(nil), WithPassHook(func(_ Summary, done bool) {
		if done {
			mu.Lock()
			passes++
			mu.Unlock()
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Poll(ctx, time.Hour) }()

	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return passes == 1
	}, "initial pass did not run")

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Poll: %v", err)
	}
}

func TestRecentRing(t *testing.T) {
	r := newRing(2)
	r.add(applier.Skipped("/a", applier.ReasonNoop))
	r.add(applier.Skipped("/b", applier.ReasonNoop))
	r.add(applier.Skipped("/c", applier.ReasonNoop))

	got := r.last(0)
	if len(got) != 2 || got[0].Path != "/c" || got[1].Path != "/b" {
		t.Errorf("last = %v", got)
	}
	if one := r.last(1); len(one) != 1 || one[0].Path != "/c" {
		t.Errorf("last(1) = %v", one)
	}
}
