package docservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/fuma/internal/apperr"
	"github.com/starford/fuma/internal/bundler"
	"github.com/starford/fuma/internal/checksum"
	"github.com/starford/fuma/internal/codec"
	"github.com/starford/fuma/internal/compiler"
	"github.com/starford/fuma/internal/rules"
	"github.com/starford/fuma/internal/testutil"
)

func testService(t *testing.T, files map[string]string) (*Service, string) {
	t.Helper()
	root, store := testutil.TestDocs(t, files)
	reg, err := rules.NewRegistry(map[string]rules.Rule{"fs_card": rules.Default()})
	if err != nil {
		t.Fatal(err)
	}
	b := bundler.New(bundler.Options{Root: root, Extensions: []string{".mdx"}, Sort: true}, nil)
	return NewService(store, compiler.New(compiler.WithRegistry(reg)), compiler.Allow("fs_card"), reg, b), root
}

func TestGetDoc(t *testing.T) {
	svc, _ := testService(t, map[string]string{
		"guide.mdx": "---\ntitle: Guide\n---\n<fs_card title=\"x\" />\n",
	})
	doc, err := svc.GetDoc(context.Background(), "guide.mdx")
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if doc.Title != "Guide" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Components) != 1 || doc.Components[0].Type != "fs_card" {
		t.Errorf("components = %+v", doc.Components)
	}

	if _, err := svc.GetDoc(context.Background(), "missing.mdx"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetDoc_UpdatedAtIsFileModTime(t *testing.T) {
	svc, root := testService(t, map[string]string{"old.mdx": "# Old\n"})
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(root, "old.mdx"), mtime, mtime); err != nil {
		t.Fatal(err)
	}
	doc, err := svc.GetDoc(context.Background(), "old.mdx")
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if !doc.UpdatedAt.Equal(mtime) {
		t.Errorf("updated_at = %v, want %v", doc.UpdatedAt, mtime)
	}
}

func TestListDocs(t *testing.T) {
	svc, _ := testService(t, map[string]string{
		"a.mdx":     "---\ntitle: A\n---\nbody\n",
		"sub/b.mdx": "no frontmatter\n",
	})
	items, err := svc.ListDocs(context.Background())
	if err != nil {
		t.Fatalf("ListDocs: %v", err)
	}
	if len(items) != 2 || items[0].Title != "A" || items[1].Title != "" {
		t.Errorf("items = %+v", items)
	}
}

func TestSaveEditorDoc_OptimisticConcurrency(t *testing.T) {
	svc, _ := testService(t, map[string]string{
		"page.mdx": "Intro\n\n<fs_card title=\"old\" />\n",
	})
	ctx := context.Background()

	ed, err := svc.GetEditorDoc(ctx, "page.mdx")
	if err != nil {
		t.Fatalf("GetEditorDoc: %v", err)
	}
	props, _ := codec.PropertiesOf("title", "new")
	if err := ed.Document.SetProps(1, props); err != nil {
		t.Fatalf("SetProps: %v", err)
	}

	if _, err := svc.SaveEditorDoc(ctx, "page.mdx", ed.Document, "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	saved, err := svc.SaveEditorDoc(ctx, "page.mdx", ed.Document, ed.Checksum)
	if err != nil {
		t.Fatalf("SaveEditorDoc: %v", err)
	}

	doc, _ := svc.GetDoc(ctx, "page.mdx")
	if doc.Source != "Intro\n\n<fs_card title=\"new\" />\n" {
		t.Errorf("source = %q", doc.Source)
	}
	if saved.Checksum != checksum.Sum([]byte(doc.Source)) {
		t.Error("checksum does not match written content")
	}
}

func TestDeleteDoc(t *testing.T) {
	svc, _ := testService(t, map[string]string{"x.mdx": "x"})
	if err := svc.DeleteDoc(context.Background(), "x.mdx"); err != nil {
		t.Fatalf("DeleteDoc: %v", err)
	}
	if err := svc.DeleteDoc(context.Background(), "x.mdx"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestCollection(t *testing.T) {
	svc, _ := testService(t, map[string]string{"a.mdx": "a", "b/c.mdx": "c"})
	col, err := svc.Collection(context.Background())
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if len(col.Entries) != 2 || col.Checksum == "" {
		t.Errorf("collection = %+v", col)
	}
	again, _ := svc.Collection(context.Background())
	if again.Checksum != col.Checksum {
		t.Error("checksum changed without edits")
	}
}
