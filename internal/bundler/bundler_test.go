package bundler

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/fuma/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestBundle_ExtensionFilter(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"a.bru":   "meta {\n  name: a\n}\n",
		"b.txt":   "ignored",
		"c/d.bru": "meta {\n  name: d\n}\n",
	})

	entries, err := New(Options{Root: root, Extensions: []string{".bru"}, Sort: true}, quietLogger()).Bundle(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	a, c := entries[0], entries[1]
	assert.Equal(t, TypeFile, a.Type)
	assert.Equal(t, "a.bru", a.Name)
	assert.Equal(t, "./a.bru", a.RelativePath)
	assert.Equal(t, "meta {\n  name: a\n}\n", a.Content)
	assert.Equal(t, filepath.ToSlash(filepath.Join(root, "a.bru")), a.AbsolutePath)

	assert.Equal(t, TypeFolder, c.Type)
	assert.Equal(t, "./c", c.RelativePath)
	require.Len(t, c.Children, 1)
	assert.Equal(t, "./c/d.bru", c.Children[0].RelativePath)
}

func TestBundle_PathsAreSlashedAndPrefixed(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"x/y/z.bru": "",
	})
	entries, err := New(Options{Root: root, Extensions: []string{".bru"}}, quietLogger()).Bundle(context.Background())
	require.NoError(t, err)

	var check func(es []*Entry)
	check = func(es []*Entry) {
		for _, e := range es {
			assert.True(t, strings.HasPrefix(e.RelativePath, "./"), e.RelativePath)
			assert.NotContains(t, e.RelativePath, `\`)
			assert.NotContains(t, e.AbsolutePath, `\`)
			check(e.Children)
		}
	}
	check(entries)
	assert.Equal(t, "./x/y/z.bru", entries[0].Children[0].Children[0].RelativePath)
}

func TestBundle_ExtensionIsCaseSensitive(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"A.BRU": "", "b.bru": ""})
	entries, err := New(Options{Root: root, Extensions: []string{".bru"}}, quietLogger()).Bundle(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.bru", entries[0].Name)
}

func TestBundle_EmptyFolders(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"empty/":     "",
		"only/x.txt": "",
		"a.bru":      "",
	})

	kept, err := New(Options{Root: root, Extensions: []string{".bru"}, Sort: true}, quietLogger()).Bundle(context.Background())
	require.NoError(t, err)
	require.Len(t, kept, 3)
	assert.Equal(t, "empty", kept[1].Name)
	assert.NotNil(t, kept[1].Children)

	pruned, err := New(Options{Root: root, Extensions: []string{".bru"}, PruneEmpty: true}, quietLogger()).Bundle(context.Background())
	require.NoError(t, err)
	require.Len(t, pruned, 1)
	assert.Equal(t, "a.bru", pruned[0].Name)
}

func TestBundle_RootFile(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"one.bru": "body"})
	entries, err := New(Options{Root: filepath.Join(root, "one.bru"), Extensions: []string{".bru"}}, quietLogger()).Bundle(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "./one.bru", entries[0].RelativePath)
	assert.Equal(t, "body", entries[0].Content)
}

func TestBundle_MissingRoot(t *testing.T) {
	_, err := New(Options{Root: filepath.Join(t.TempDir(), "nope"), Extensions: []string{".bru"}}, quietLogger()).Bundle(context.Background())
	assert.True(t, errors.Is(err, fs.ErrNotExist), "err = %v", err)
}

func TestBundle_Cancelled(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"a.bru": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{Root: root, Extensions: []string{".bru"}}, quietLogger()).Bundle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBundle_Decode(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"ok.bru": "fine", "bad.bru": "broken"})
	decode := func(rel string, content []byte) (any, error) {
		if string(content) == "broken" {
			return nil, errors.New("cannot decode")
		}
		return map[string]string{"rel": rel}, nil
	}
	entries, err := New(Options{Root: root, Extensions: []string{".bru"}, Sort: true, Decode: decode}, quietLogger()).Bundle(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].Data)
	assert.Equal(t, map[string]string{"rel": "./ok.bru"}, entries[1].Data)
}

func TestEntry_JSONShape(t *testing.T) {
	folder := &Entry{Type: TypeFolder, Name: "c", RelativePath: "./c", AbsolutePath: "/r/c"}
	data, err := json.Marshal(folder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"folder","name":"c","relativePath":"./c","absolutePath":"/r/c","children":[]}`, string(data))

	file := &Entry{Type: TypeFile, Name: "a.bru", RelativePath: "./a.bru", AbsolutePath: "/r/a.bru", Content: "x"}
	data, err = json.Marshal(file)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"file","name":"a.bru","relativePath":"./a.bru","absolutePath":"/r/a.bru","content":"x"}`, string(data))
}

func TestWatch_DebouncesBurst(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"sub/": ""})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var bursts [][]string
	done := make(chan struct{})
	go func() {
		_ = Watch(ctx, root, quietLogger(), func(paths []string) {
			mu.Lock()
			bursts = append(bursts, paths)
			mu.Unlock()
		})
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "a.bru"), []byte("1"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "sub", "b.bru"), []byte("2"), 0o644)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(bursts)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	mu.Lock()
	require.NotEmpty(t, bursts, "no change burst delivered")
	seen := map[string]bool{}
	for _, b := range bursts {
		for _, p := range b {
			seen[p] = true
		}
	}
	mu.Unlock()
	assert.True(t, seen["./a.bru"] || seen["./sub/b.bru"], "paths = %v", seen)

	cancel()
	<-done
}

func TestWatch_FileRoot(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{"a.bru": "1", "other.bru": "x"})
	file := filepath.Join(dir, "a.bru")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bursts := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, file, quietLogger(), func(paths []string) { bursts <- paths })
	}()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.bru"), []byte("y"), 0o644))
	require.NoError(t, os.WriteFile(file, []byte("2"), 0o644))

	select {
	case paths := <-bursts:
		assert.Equal(t, []string{"./a.bru"}, paths)
	case err := <-done:
		t.Fatalf("watch returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("file root change never reported")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_MissingRoot(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope.bru"), quietLogger(), func([]string) {})
	assert.True(t, errors.Is(err, fs.ErrNotExist), "err = %v", err)
}
