// Package naming converts component ids between tag case (snake_case) and
// render case (PascalCase).
package naming

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/fuma/internal/apperr"
)

// ToRenderCase converts a snake_case id to PascalCase: fs_component becomes
// FsComponent and a_b_c becomes ABC. Empty segments are dropped.
func ToRenderCase(id string) string {
	// A Caser keeps state and is not safe for concurrent use.
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, part := range strings.Split(id, "_") {
		if part == "" {
			continue
		}
		b.WriteString(title.String(part))
	}
	return b.String()
}

// Index remembers which render names came from which ids so that only those
// tags get rewritten.
type Index struct {
	render   map[string]string // id -> render name
	original map[string]string // render name -> id
}

// NewIndex builds an index over ids. Two ids that normalise to the same render
// name fail with apperr.ErrDuplicateComponent.
func NewIndex(ids []string) (*Index, error) {
	idx := &Index{
		render:   make(map[string]string, len(ids)),
		original: make(map[string]string, len(ids)),
	}
	for _, id := range ids {
		r := ToRenderCase(id)
		if prev, ok := idx.original[r]; ok && prev != id {
			return nil, fmt.Errorf("naming: %w: %q and %q both render as %q", apperr.ErrDuplicateComponent, prev, id, r)
		}
		idx.render[id] = r
		idx.original[r] = id
	}
	return idx, nil
}

// Contains reports whether id was indexed.
func (i *Index) Contains(id string) bool {
	_, ok := i.render[id]
	return ok
}

// Render returns the render name for id.
func (i *Index) Render(id string) (string, bool) {
	r, ok := i.render[id]
	return r, ok
}

// Original returns the id a render name came from.
func (i *Index) Original(render string) (string, bool) {
	id, ok := i.original[render]
	return id, ok
}

// IDs returns the indexed ids, sorted.
func (i *Index) IDs() []string {
	out := make([]string, 0, len(i.render))
	for id := range i.render {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
