package ports

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/plotline/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunAllocatorContract runs a suite of tests to verify that an Allocator implementation
// adheres to the defined interface contract.
func RunAllocatorContract(t *testing.T, alloc Allocator) {
	ctx := context.Background()

	t.Run("Creates Directory Under Root", func(t *testing.T) {
		root := t.TempDir()

		path, err := alloc.Allocate(ctx, "contract seed", root)
		require.NoError(t, err, "Allocate should not return error")

		assert.Equal(t, root, filepath.Dir(path), "allocated path must be a direct child of root")
		info, err := os.Stat(path)
		require.NoError(t, err, "allocated directory must exist")
		assert.True(t, info.IsDir())
	})

	t.Run("Repeated Calls Never Collide", func(t *testing.T) {
		root := t.TempDir()
		seen := make(map[string]bool)

		for i := 0; i < 5; i++ {
			path, err := alloc.Allocate(ctx, "same seed", root)
			require.NoError(t, err)
			assert.False(t, seen[path], "path %s allocated twice", path)
			seen[path] = true
		}
	})

	t.Run("Missing Root Is Created", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "root")

		path, err := alloc.Allocate(ctx, "seed", root)
		require.NoError(t, err)
		assert.DirExists(t, path)
	})

	t.Run("Unwritable Root Fails", func(t *testing.T) {
		// A regular file where the root directory should be.
		root := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))

		_, err := alloc.Allocate(ctx, "seed", root)
		assert.Error(t, err, "Allocate should fail when root cannot hold directories")
	})
}

// RunResultStoreContract verifies the behavior every ResultStore must provide.
func RunResultStoreContract(t *testing.T, store ResultStore) {
	ctx := context.Background()

	newResult := func(id string) *domain.Result {
		b := domain.NewBundle(filepath.Join("out", id))
		b.RasterPath = filepath.Join("out", id, "generated.png")
		return &domain.Result{RunID: "run-" + id, Concept: "concept " + id, Bundle: b}
	}

	t.Run("Save And Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newResult("b1")))

		got, err := store.Load(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "run-b1", got.RunID)
		assert.Equal(t, "b1", got.Bundle.ID)
	})

	t.Run("Load Returns Isolated Copies", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newResult("b2")))

		got, err := store.Load(ctx, "b2")
		require.NoError(t, err)
		got.Bundle.RasterPath = "mutated"

		again, err := store.Load(ctx, "b2")
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Bundle.RasterPath, "store must not share bundle state with callers")
	})

	t.Run("Missing Is Not Found", func(t *testing.T) {
		_, err := store.Load(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	})

	t.Run("Results Without Bundle Are Ignored", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &domain.Result{RunID: "orphan"}))
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, "")
	})

	t.Run("List And Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newResult("b3")))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "b3")

		require.NoError(t, store.Delete(ctx, "b3"))
		_, err = store.Load(ctx, "b3")
		assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	})
}
