// Package vault reads and writes Markdown notes in a directory tree.
package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/verte-zerg/xpradar/internal/logging"
	"github.com/verte-zerg/xpradar/internal/model"
)

// FS is a vault rooted at a directory on disk.
type FS struct {
	root   string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open returns a vault for the directory at root.
func Open(root string, logger *zap.Logger) (*FS, error) {
	logger = logging.OrNop(logger)
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path is not a directory: %s", abs)
	}
	return &FS{root: abs, logger: logger, locks: map[string]*sync.Mutex{}}, nil
}

// Root returns the absolute vault directory.
func (v *FS) Root() string {
	return v.root
}

// List returns every Markdown note sorted by path. Hidden files and
// directories such as .obsidian and .git are skipped.
func (v *FS) List(ctx context.Context) ([]model.Ref, error) {
	var refs []model.Ref
	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := d.Name()
		if d.IsDir() {
			if path != v.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !IsNote(name) {
			return nil
		}
		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return err
		}
		refs = append(refs, RefFor(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vault: %w", err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

// Read loads and parses one note.
func (v *FS) Read(ctx context.Context, ref model.Ref) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, err
	}
	data, err := os.ReadFile(v.abs(ref))
	if err != nil {
		return model.Document{}, fmt.Errorf("failed to read %s: %w", ref.Path, err)
	}
	return Parse(ref, string(data)), nil
}

// Write applies field updates to a note. It reports whether the file was
// written: unchanged content is left alone unless force is set. Writes to the
// same note are serialized.
func (v *FS) Write(ctx context.Context, ref model.Ref, fields []model.Field, force bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	lock := v.lockFor(ref.Path)
	lock.Lock()
	defer lock.Unlock()

	path := v.abs(ref)
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", ref.Path, err)
	}
	updated, changed := ApplyFields(string(data), fields)
	if !changed && !force {
		return false, nil
	}
	if err := writeAtomic(path, []byte(updated)); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", ref.Path, err)
	}
	v.logger.Debug("note updated", zap.String("path", ref.Path), zap.Bool("changed", changed))
	return true, nil
}

func (v *FS) abs(ref model.Ref) string {
	return filepath.Join(v.root, filepath.FromSlash(ref.Path))
}

func (v *FS) lockFor(path string) *sync.Mutex {
	v.mu.Lock()
	defer v.mu.Unlock()
	lock, ok := v.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		v.locks[path] = lock
	}
	return lock
}

// IsNote reports whether a file name is a Markdown note.
func IsNote(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".md")
}

// RefFor builds a reference from a slash separated vault-relative path.
func RefFor(rel string) model.Ref {
	base := rel
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	return model.Ref{Path: rel, ID: base[:len(base)-len(filepath.Ext(base))]}
}

func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".xpradar-*.md")
	if err != nil {
		return fmt.Errorf("failed to create temp note: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp note: %w", err)
	}
	if err := tmpFile.Chmod(mode); err != nil {
		return fmt.Errorf("failed to set note mode: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp note: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace note: %w", err)
	}
	return nil
}
