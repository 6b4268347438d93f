package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/apperr"
)

// FS implements Provider backed by the local file system.
type FS struct{}

// NewFS creates a local file system provider.
func NewFS() *FS {
	return &FS{}
}

var _ Provider = (*FS)(nil)

// Join resolves rel against base and rejects any result that escapes it
// (directory traversal or a symlink pointing elsewhere).
func (f *FS) Join(base, rel string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("storage: resolve base: %w", err)
	}
	if rel == "" {
		return absBase, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", fmt.Errorf("storage: absolute path %q: %w", rel, apperr.ErrPathEscape)
	}
	joined := filepath.Join(absBase, cleaned)
	if !within(absBase, joined) {
		return "", fmt.Errorf("storage: %q: %w", rel, apperr.ErrPathEscape)
	}
	if !within(resolveExisting(absBase), resolveExisting(joined)) {
		return "", fmt.Errorf("storage: %q resolves outside %s: %w", rel, absBase, apperr.ErrPathEscape)
	}
	return joined, nil
}

// SameDir compares directory identity rather than spelling, so trailing
// separators, relative segments and symlinked aliases compare equal.
func (f *FS) SameDir(a, b string) bool {
	ai, errA := os.Stat(a)
	bi, errB := os.Stat(b)
	if errA == nil && errB == nil {
		return os.SameFile(ai, bi)
	}
	return resolveExisting(absClean(a)) == resolveExisting(absClean(b))
}

// Lstat describes path without following a final symlink.
func (f *FS) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// MkdirAll creates dir with its parents and reports the top-most new directory.
func (f *FS) MkdirAll(dir string) (string, error) {
	created := ""
	for p := dir; ; p = filepath.Dir(p) {
		if _, err := os.Lstat(p); err == nil {
			break
		}
		created = p
		if filepath.Dir(p) == p {
			break
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}
	return created, nil
}

// RemoveEmpty walks from dir up to top removing directories while they are empty.
func (f *FS) RemoveEmpty(dir, top string) {
	if dir == "" || top == "" {
		return
	}
	for p := dir; ; p = filepath.Dir(p) {
		if err := os.Remove(p); err != nil {
			return
		}
		if p == top || filepath.Dir(p) == p {
			return
		}
	}
}

// Remove deletes one file. A missing file surfaces as fs.ErrNotExist.
func (f *FS) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Move publishes src at dst with a hard link and then unlinks src, so an
// occupied dst is detected atomically instead of being replaced. When hard
// links are unavailable (cross-device, unsupported filesystem) the content
// is copied to a temp file, fsynced and published without clobbering.
func (f *FS) Move(src, dst string) error {
	err := os.Link(src, dst)
	switch {
	case err == nil:
		if err := os.Remove(src); err != nil {
			_ = os.Remove(dst)
			return fmt.Errorf("storage: move: unlink source: %w", err)
		}
		return nil
	case errors.Is(err, fs.ErrExist):
		if sameFile(src, dst) {
			// Same inode under another spelling, e.g. a case-only rename.
			if err := os.Rename(src, dst); err != nil {
				return fmt.Errorf("storage: move: %w", err)
			}
			return nil
		}
		return fmt.Errorf("storage: move to %s: %w", dst, apperr.ErrConflict)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("storage: move: %w", err)
	}
	return f.copyMove(src, dst)
}

func (f *FS) copyMove(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf("storage: move: read link: %w", err)
		}
		if err := os.Symlink(target, dst); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("storage: move to %s: %w", dst, apperr.ErrConflict)
			}
			return fmt.Errorf("storage: move: symlink: %w", err)
		}
	} else if err := copyNoClobber(src, dst, info); err != nil {
		return err
	}

	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("storage: move: unlink source: %w", err)
	}
	return nil
}

// copyNoClobber writes src into a temp file next to dst: copy → fsync →
// publish. The temp file never survives a failure.
func copyNoClobber(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("storage: move: open source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return fmt.Errorf("storage: copy: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	_ = os.Chmod(tmpName, info.Mode().Perm())
	_ = os.Chtimes(tmpName, info.ModTime(), info.ModTime())

	linkErr := os.Link(tmpName, dst)
	switch {
	case linkErr == nil:
		_ = os.Remove(tmpName)
	case errors.Is(linkErr, fs.ErrExist):
		return fmt.Errorf("storage: move to %s: %w", dst, apperr.ErrConflict)
	default:
		if _, err := os.Lstat(dst); err == nil {
			return fmt.Errorf("storage: move to %s: %w", dst, apperr.ErrConflict)
		}
		if err := os.Rename(tmpName, dst); err != nil {
			return fmt.Errorf("storage: rename: %w", err)
		}
	}
	success = true
	return nil
}

func sameFile(a, b string) bool {
	ai, errA := os.Lstat(a)
	bi, errB := os.Lstat(b)
	return errA == nil && errB == nil && os.SameFile(ai, bi)
}

func absClean(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// within reports whether p is base or lies beneath it.
func within(base, p string) bool {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// resolveExisting evaluates symlinks on the longest existing prefix of p
// and re-attaches the part that does not exist yet.
func resolveExisting(p string) string {
	rest := ""
	cur := p
	for {
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(real, rest)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}
