// Package applier turns advisory suggestions into at most one safe
// filesystem mutation per file.
package applier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
)

// ConflictPolicy selects what happens when the destination is occupied.
type ConflictPolicy string

const (
	// ConflictFail reports a conflict and touches nothing.
	ConflictFail ConflictPolicy = "conflict"
	// ConflictSuffix picks the lowest free "name (N).ext".
	ConflictSuffix ConflictPolicy = "suffix"
)

const maxSuffix = 1000

// Applier executes suggestions against the filesystem. It holds no state
// between calls and takes no locks; every call re-validates the file.
type Applier struct {
	store     storage.Provider
	root      string
	confirmer Confirmer
	policy    ConflictPolicy
	logger    *slog.Logger
}

// Option configures an Applier.
type Option func(*Applier)

// WithRoot sets the organizational root all relocations are based on.
func WithRoot(root string) Option {
	return func(a *Applier) {
		a.root = root
	}
}

// WithConfirmer sets the confirmation policy.
func WithConfirmer(c Confirmer) Option {
	return func(a *Applier) {
		a.confirmer = c
	}
}

// WithConflictPolicy sets how occupied destinations are handled.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(a *Applier) {
		a.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Applier) {
		a.logger = l
	}
}

// New creates an Applier. Without WithConfirmer every request is declined.
func New(store storage.Provider, opts ...Option) *Applier {
	a := &Applier{
		store:     store,
		confirmer: DeclineAll(),
		policy:    ConflictFail,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Root returns the configured organizational root, or "".
func (a *Applier) Root() string {
	return a.root
}

// Apply maps one record and suggestion to exactly one Outcome.
func (a *Applier) Apply(ctx context.Context, rec models.FileRecord, sug models.Suggestion) Outcome {
	sug = sug.Normalized()

	base := a.root
	if base == "" {
		base = rec.Dir()
	}

	if sug.Delete {
		return a.applyDelete(ctx, rec)
	}
	return a.applyMove(ctx, rec, sug, base)
}

func (a *Applier) applyDelete(ctx context.Context, rec models.FileRecord) Outcome {
	info, err := a.store.Lstat(rec.Path)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Debug("applier: already deleted", slog.String("path", rec.Path))
		return deleted(rec.Path)
	}
	if err != nil {
		return failed(rec.Path, fmt.Errorf("applier: stat: %w", err))
	}
	if !isFileLike(info) {
		return failed(rec.Path, fmt.Errorf("applier: delete %s: %w", rec.Path, apperr.ErrNotRegular))
	}

	if changedSince(rec, info) {
		return Skipped(rec.Path, ReasonChanged)
	}

	if out, ok := a.confirm(ctx, Request{Record: rec, Actions: []Action{ActionDelete}}); !ok {
		return out
	}

	// The answer may have taken a while.
	info, err = a.store.Lstat(rec.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return deleted(rec.Path)
	}
	if err != nil {
		return failed(rec.Path, fmt.Errorf("applier: stat: %w", err))
	}
	if changedSince(rec, info) {
		return Skipped(rec.Path, ReasonChanged)
	}

	if err := a.store.Remove(rec.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return deleted(rec.Path)
		}
		return failed(rec.Path, err)
	}
	return deleted(rec.Path)
}

func (a *Applier) applyMove(ctx context.Context, rec models.FileRecord, sug models.Suggestion, base string) Outcome {
	newName := sug.Name
	if newName == "" {
		newName = rec.Name
	}
	parent := rec.Dir()

	var (
		targetDir string
		err       error
	)
	if sug.KeepFolder {
		targetDir, err = a.store.Join(parent, "")
	} else {
		targetDir, err = a.store.Join(base, sug.Folder)
	}
	if err != nil {
		return failed(rec.Path, err)
	}

	var actions []Action
	if newName != rec.Name {
		actions = append(actions, ActionRename)
	}
	if !a.store.SameDir(targetDir, parent) {
		actions = append(actions, ActionMove)
	}
	if len(actions) == 0 {
		return Skipped(rec.Path, ReasonNoop)
	}

	info, err := a.store.Lstat(rec.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Skipped(rec.Path, ReasonNotFound)
	}
	if err != nil {
		return failed(rec.Path, fmt.Errorf("applier: stat: %w", err))
	}
	if !isFileLike(info) {
		return failed(rec.Path, fmt.Errorf("applier: move %s: %w", rec.Path, apperr.ErrNotRegular))
	}

	wanted, err := a.store.Join(targetDir, newName)
	if err != nil {
		return failed(rec.Path, err)
	}
	dest, err := a.resolveDestination(info, wanted)
	if err != nil {
		return conflict(rec.Path, wanted, err)
	}
	// A suffixed file asked to take its occupied original name again
	// resolves to itself.
	if filepath.Clean(dest) == filepath.Clean(rec.Path) {
		return Skipped(rec.Path, ReasonNoop)
	}

	req := Request{
		Record:      rec,
		Actions:     actions,
		NewName:     filepath.Base(dest),
		TargetDir:   targetDir,
		Destination: dest,
	}
	if out, ok := a.confirm(ctx, req); !ok {
		return out
	}

	created, err := a.store.MkdirAll(targetDir)
	if err != nil {
		return failed(rec.Path, err)
	}
	if err := a.store.Move(rec.Path, dest); err != nil {
		a.store.RemoveEmpty(targetDir, created)
		switch {
		case errors.Is(err, apperr.ErrConflict):
			return conflict(rec.Path, dest, err)
		case errors.Is(err, fs.ErrNotExist):
			return Skipped(rec.Path, ReasonNotFound)
		default:
			return failed(rec.Path, err)
		}
	}
	return moved(rec.Path, dest)
}

// resolveDestination returns wanted when it is free (or is the source
// itself under another spelling), otherwise applies the conflict policy.
func (a *Applier) resolveDestination(src fs.FileInfo, wanted string) (string, error) {
	if !a.occupied(src, wanted) {
		return wanted, nil
	}
	if a.policy != ConflictSuffix {
		return "", fmt.Errorf("applier: %s: %w", wanted, apperr.ErrConflict)
	}

	dir, name := filepath.Split(wanted)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	for i := 1; i <= maxSuffix; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if !a.occupied(src, candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("applier: no free name for %s: %w", wanted, apperr.ErrConflict)
}

func (a *Applier) occupied(src fs.FileInfo, path string) bool {
	info, err := a.store.Lstat(path)
	if err != nil {
		return false
	}
	return !os.SameFile(src, info)
}

// confirm asks the confirmer. When it returns false the Outcome explains why.
func (a *Applier) confirm(ctx context.Context, req Request) (Outcome, bool) {
	path := req.Record.Path
	if ctx.Err() != nil {
		return Skipped(path, ReasonCancelled), false
	}

	ok, err := a.confirmer.Confirm(ctx, req)
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return Skipped(path, ReasonCancelled), false
	case err != nil:
		return failed(path, fmt.Errorf("applier: confirm: %w", err)), false
	case !ok:
		return Skipped(path, ReasonDeclined), false
	}
	return Outcome{}, true
}

// changedSince reports whether a regular file no longer matches the size and
// modification time it was scanned with. Records without a scan time and
// symlinks are not compared.
func changedSince(rec models.FileRecord, info fs.FileInfo) bool {
	if rec.ModifiedAt.IsZero() || !info.Mode().IsRegular() {
		return false
	}
	return info.Size() != rec.SizeBytes || !info.ModTime().Equal(rec.ModifiedAt)
}

func isFileLike(info fs.FileInfo) bool {
	return info.Mode().IsRegular() || info.Mode()&fs.ModeSymlink != 0
}
