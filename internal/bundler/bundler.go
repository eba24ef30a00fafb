// Package bundler walks a collection directory into a tree of file and folder
// entries.
package bundler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry types.
const (
	TypeFile   = "file"
	TypeFolder = "folder"
)

// Entry is a file or a folder of the collection.
type Entry struct {
	Type         string
	Name         string
	RelativePath string
	AbsolutePath string
	// Content is set for files.
	Content string
	// Data holds the decoded file when Options.Decode is set.
	Data     any
	Children []*Entry
}

// MarshalJSON writes files with content and folders with children, never both.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type base struct {
		Type         string `json:"type"`
		Name         string `json:"name"`
		RelativePath string `json:"relativePath"`
		AbsolutePath string `json:"absolutePath"`
	}
	b := base{Type: e.Type, Name: e.Name, RelativePath: e.RelativePath, AbsolutePath: e.AbsolutePath}
	if e.Type == TypeFolder {
		children := e.Children
		if children == nil {
			children = []*Entry{}
		}
		return json.Marshal(struct {
			base
			Children []*Entry `json:"children"`
		}{b, children})
	}
	return json.Marshal(struct {
		base
		Content string `json:"content"`
		Data    any    `json:"data,omitempty"`
	}{b, e.Content, e.Data})
}

// Options configures a Bundler.
type Options struct {
	Root string
	// Extensions lists the kept file suffixes, leading dot included. Matching
	// is case-sensitive.
	Extensions []string
	// Sort orders siblings by name instead of directory-listing order.
	Sort bool
	// PruneEmpty drops folders that end up with no children.
	PruneEmpty bool
	// Decode, when set, fills Entry.Data for every kept file.
	Decode func(rel string, content []byte) (any, error)
}

// Bundler produces entry trees. Every Bundle call reads the disk afresh.
type Bundler struct {
	opts   Options
	exts   map[string]struct{}
	logger *slog.Logger
}

// New returns a Bundler for opts.
func New(opts Options, logger *slog.Logger) *Bundler {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[e] = struct{}{}
	}
	return &Bundler{opts: opts, exts: exts, logger: logger}
}

// Bundle walks the root. A root folder yields its children; a root file
// yields a single entry whose paths are relative to its directory.
func (b *Bundler) Bundle(ctx context.Context) ([]*Entry, error) {
	root, err := filepath.Abs(b.opts.Root)
	if err != nil {
		return nil, fmt.Errorf("bundler: resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("bundler: stat root: %w", err)
	}

	if !info.IsDir() {
		e, err := b.file(filepath.Dir(root), root, info.Name())
		if err != nil {
			return nil, err
		}
		if e == nil {
			return []*Entry{}, nil
		}
		return []*Entry{e}, nil
	}

	// The root itself must be listable; below it, vanished entries are skipped.
	if _, err := os.ReadDir(root); err != nil {
		return nil, fmt.Errorf("bundler: read root: %w", err)
	}
	children, err := b.walk(ctx, root, root)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("Bundled collection", slog.String("root", root), slog.Int("entries", len(children)))
	return children, nil
}

func (b *Bundler) walk(ctx context.Context, root, dir string) ([]*Entry, error) {
	names, err := b.list(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*Entry{}, nil
		}
		return nil, fmt.Errorf("bundler: list %s: %w", dir, err)
	}

	out := []*Entry{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs := filepath.Join(dir, name)
		info, err := os.Stat(abs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("bundler: stat %s: %w", abs, err)
		}

		if info.IsDir() {
			children, err := b.walk(ctx, root, abs)
			if err != nil {
				return nil, err
			}
			if b.opts.PruneEmpty && len(children) == 0 {
				continue
			}
			out = append(out, &Entry{
				Type:         TypeFolder,
				Name:         name,
				RelativePath: relative(root, abs),
				AbsolutePath: filepath.ToSlash(abs),
				Children:     children,
			})
			continue
		}

		e, err := b.file(root, abs, name)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// list returns the names in dir, in listing order unless sorting is on.
func (b *Bundler) list(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	if b.opts.Sort {
		sort.Strings(names)
	}
	return names, nil
}

func (b *Bundler) file(root, abs, name string) (*Entry, error) {
	if _, ok := b.exts[filepath.Ext(name)]; !ok {
		return nil, nil
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("bundler: read %s: %w", abs, err)
	}
	e := &Entry{
		Type:         TypeFile,
		Name:         name,
		RelativePath: relative(root, abs),
		AbsolutePath: filepath.ToSlash(abs),
		Content:      string(content),
	}
	if b.opts.Decode != nil {
		data, err := b.opts.Decode(e.RelativePath, content)
		if err != nil {
			b.logger.Warn("Failed to decode collection file",
				slog.String("path", e.RelativePath),
				slog.String("error", err.Error()))
		} else {
			e.Data = data
		}
	}
	return e, nil
}

// relative returns abs relative to root as ./a/b with forward slashes.
func relative(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		rel = abs
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "./") || strings.HasPrefix(rel, "../") {
		return rel
	}
	return "./" + rel
}
