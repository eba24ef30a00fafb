// Package testutil provides shared test helpers for building content trees.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/fuma/internal/storage"
)

// WriteTree creates files under a fresh temp directory and returns its path.
// Keys are slash-separated relative paths; a key ending in "/" creates an
// empty directory.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// TestDocs creates a temporary content directory with a storage.Provider.
func TestDocs(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	root := WriteTree(t, files)
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}
