// Package docservice coordinates storage, the compiler, the editor codec and
// the bundler behind the preview server and the MCP tools.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/starford/fuma/internal/apperr"
	"github.com/starford/fuma/internal/bundler"
	"github.com/starford/fuma/internal/checksum"
	"github.com/starford/fuma/internal/compiler"
	"github.com/starford/fuma/internal/editor"
	"github.com/starford/fuma/internal/frontmatter"
	"github.com/starford/fuma/internal/rules"
	"github.com/starford/fuma/internal/storage"
)

// DocDetail is a compiled document.
type DocDetail struct {
	Path        string                 `json:"path"`
	Title       string                 `json:"title"`
	HTML        string                 `json:"html"`
	Source      string                 `json:"source"`
	Checksum    string                 `json:"checksum"`
	Frontmatter map[string]any         `json:"frontmatter,omitempty"`
	Components  []*rules.ComponentNode `json:"components"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// DocListItem is a lightweight item in a list response.
type DocListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EditorDetail is a document in editor form.
type EditorDetail struct {
	Path     string           `json:"path"`
	Checksum string           `json:"checksum"`
	Document *editor.Document `json:"document"`
}

// Collection is a bundled collection and its fingerprint.
type Collection struct {
	Checksum string           `json:"checksum"`
	Entries  []*bundler.Entry `json:"entries"`
}

// Service coordinates storage and content operations.
type Service struct {
	store      storage.Provider
	compiler   *compiler.Compiler
	components compiler.Components
	registry   *rules.Registry
	bundler    *bundler.Bundler
}

// NewService creates a new document service. components doubles as the set
// of tags compiled as components; registry drives the editor codec.
func NewService(store storage.Provider, c *compiler.Compiler, components compiler.Components, registry *rules.Registry, b *bundler.Bundler) *Service {
	return &Service{store: store, compiler: c, components: components, registry: registry, bundler: b}
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// GetDoc reads and compiles a document.
func (s *Service) GetDoc(_ context.Context, path string) (*DocDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.ModTime(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	res, err := s.compiler.Compile(string(data), s.components)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return &DocDetail{
		Path:        path,
		Title:       title(res.Frontmatter),
		HTML:        res.Content,
		Source:      string(data),
		Checksum:    checksum.Sum(data),
		Frontmatter: res.Frontmatter,
		Components:  nonNilSlice(res.Components),
		UpdatedAt:   updated,
	}, nil
}

// ListDocs returns every document with its title.
func (s *Service) ListDocs(_ context.Context) ([]DocListItem, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	items := make([]DocListItem, 0, len(metas))
	for _, m := range metas {
		item := DocListItem{Path: m.Path, Checksum: m.Checksum, UpdatedAt: m.UpdatedAt}
		if data, err := s.store.Read(m.Path); err == nil {
			if block, _, ok := frontmatter.Split(data); ok {
				if fm, err := frontmatter.Decode(block); err == nil {
					item.Title = title(fm)
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// GetEditorDoc reads a document into editor form.
func (s *Service) GetEditorDoc(_ context.Context, path string) (*EditorDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	doc, err := editor.Deserialize(s.registry, string(data))
	if err != nil {
		return nil, fmt.Errorf("deserialize %s: %w", path, err)
	}
	return &EditorDetail{Path: path, Checksum: checksum.Sum(data), Document: doc}, nil
}

// SaveEditorDoc serializes doc and writes it with optimistic concurrency:
// a non-empty ifMatch must equal the checksum of the current file.
func (s *Service) SaveEditorDoc(_ context.Context, path string, doc *editor.Document, ifMatch string) (*EditorDetail, error) {
	existing, err := s.store.Read(path)
	switch {
	case err == nil:
		if ifMatch != "" && ifMatch != checksum.Sum(existing) {
			return nil, apperr.ErrConflict
		}
	case errors.Is(err, os.ErrNotExist):
		if ifMatch != "" {
			return nil, apperr.ErrNotFound
		}
	default:
		return nil, err
	}

	out, err := editor.Serialize(s.registry, doc)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", path, err)
	}
	if err := s.store.Write(path, []byte(out)); err != nil {
		return nil, err
	}
	return &EditorDetail{Path: path, Checksum: checksum.Sum([]byte(out)), Document: doc}, nil
}

// DeleteDoc removes a document.
func (s *Service) DeleteDoc(_ context.Context, path string) error {
	if _, err := s.read(path); err != nil {
		return err
	}
	return s.store.Delete(path)
}

// Collection bundles the collection afresh.
func (s *Service) Collection(ctx context.Context) (*Collection, error) {
	entries, err := s.bundler.Bundle(ctx)
	if err != nil {
		return nil, err
	}
	sum, err := checksum.JSON(entries)
	if err != nil {
		return nil, err
	}
	return &Collection{Checksum: sum, Entries: entries}, nil
}

// Compile compiles a source that is not stored.
func (s *Service) Compile(source string) (*compiler.Result, error) {
	return s.compiler.Compile(source, s.components)
}

// Registry returns the editor rule registry.
func (s *Service) Registry() *rules.Registry { return s.registry }

// ComponentIDs returns the ids compiled as components, sorted.
func (s *Service) ComponentIDs() []string {
	return compiler.IDs(s.components)
}

func title(fm map[string]any) string {
	if t, ok := fm["title"].(string); ok {
		return t
	}
	return ""
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
