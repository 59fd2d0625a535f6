package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestExpandPaths(t *testing.T) {
	t.Run("Should expand directories to supported files in lexical order", func(t *testing.T) {
		root := t.TempDir()
		touch(t, filepath.Join(root, "b.csv"))
		touch(t, filepath.Join(root, "a.txt"))
		touch(t, filepath.Join(root, "nested", "c.PDF"))
		touch(t, filepath.Join(root, "image.png"))

		got, stats, err := ExpandPaths([]string{root}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "a.txt"),
			filepath.Join(root, "b.csv"),
			filepath.Join(root, "nested", "c.PDF"),
		}, got)
		assert.Equal(t, uint32(3), stats.Matched)
		assert.Equal(t, uint32(1), stats.Skipped)
	})

	t.Run("Should skip hidden files and directories when asked", func(t *testing.T) {
		root := t.TempDir()
		touch(t, filepath.Join(root, ".secret.txt"))
		touch(t, filepath.Join(root, ".cache", "d.txt"))
		touch(t, filepath.Join(root, "e.txt"))

		got, _, err := ExpandPaths([]string{root}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "e.txt")}, got)

		got, _, err = ExpandPaths([]string{root}, false)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("Should pass explicit and missing files through unchanged", func(t *testing.T) {
		root := t.TempDir()
		img := filepath.Join(root, "photo.png")
		touch(t, img)
		missing := filepath.Join(root, "nope.txt")

		got, stats, err := ExpandPaths([]string{img, missing, "  "}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{img, missing}, got)
		assert.Zero(t, stats.Scanned)
	})
}

func TestIsHidden(t *testing.T) {
	t.Run("Should flag dot files only", func(t *testing.T) {
		assert.True(t, IsHidden("/a/.env"))
		assert.False(t, IsHidden("/a/b.txt"))
		assert.False(t, IsHidden("."))
	})
}

func TestStartWatcher(t *testing.T) {
	t.Run("Should reject an empty root list", func(t *testing.T) {
		_, _, err := StartWatcher(context.Background(), WatchConfig{})
		require.Error(t, err)
	})

	t.Run("Should emit existing files on initial scan", func(t *testing.T) {
		root := t.TempDir()
		existing := filepath.Join(root, "old.json")
		touch(t, existing)
		touch(t, filepath.Join(root, "skip.bin"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
		require.NoError(t, err)

		select {
		case got := <-events:
			assert.Equal(t, existing, got)
		case <-time.After(2 * time.Second):
			t.Fatal("no initial event")
		}
	})

	t.Run("Should emit a new file once after its writes settle", func(t *testing.T) {
		root := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, Debounce: 50 * time.Millisecond})
		require.NoError(t, err)

		path := filepath.Join(root, "new.txt")
		f, err := os.Create(path)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, err = f.WriteString("line\n")
			require.NoError(t, err)
		}
		require.NoError(t, f.Close())

		select {
		case got := <-events:
			assert.Equal(t, path, got)
		case <-time.After(3 * time.Second):
			t.Fatal("no event for new file")
		}
		select {
		case got := <-events:
			t.Fatalf("unexpected second event for %s", got)
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("Should ignore files under excluded directories", func(t *testing.T) {
		root := t.TempDir()
		out := filepath.Join(root, "converted")
		touch(t, filepath.Join(out, "done_abc123.txt"))
		kept := filepath.Join(root, "in.txt")
		touch(t, kept)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Exclude: []string{out}})
		require.NoError(t, err)

		select {
		case got := <-events:
			assert.Equal(t, kept, got)
		case <-time.After(2 * time.Second):
			t.Fatal("no initial event")
		}

		touch(t, filepath.Join(out, "later_def456.txt"))
		select {
		case got := <-events:
			t.Fatalf("unexpected event for %s", got)
		case <-time.After(300 * time.Millisecond):
		}
	})

	t.Run("Should close the event channel when the context ends", func(t *testing.T) {
		root := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}})
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-events:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed")
		}
	})
}
