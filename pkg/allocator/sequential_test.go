package allocator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/plotline/pkg/domain"
	"github.com/aretw0/plotline/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequential_Contract(t *testing.T) {
	ports.RunAllocatorContract(t, NewSequential())
}

func TestSequential_IncrementsSuffix(t *testing.T) {
	root := t.TempDir()
	alloc := NewSequential()
	ctx := context.Background()

	first, err := alloc.Allocate(ctx, "My Concept!", root)
	require.NoError(t, err)
	assert.Equal(t, "My_Concept_1", filepath.Base(first))

	second, err := alloc.Allocate(ctx, "My Concept!", root)
	require.NoError(t, err)
	assert.Equal(t, "My_Concept_2", filepath.Base(second))

	assert.DirExists(t, first)
	assert.DirExists(t, second)
}

func TestSequential_TruncatesSeedBeforeSuffix(t *testing.T) {
	root := t.TempDir()

	path, err := NewSequential().Allocate(context.Background(), "an extraordinarily long concept name", root)
	require.NoError(t, err)

	assert.Equal(t, "an_extraordinarily_l_1", filepath.Base(path))
}

func TestSequential_ContinuesFromHighestExisting(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"cat_1", "cat_7", "cat_3", "catalog_99", "cat_notanumber"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}
	// Regular files never count.
	require.NoError(t, os.WriteFile(filepath.Join(root, "cat_50"), nil, 0o644))

	path, err := NewSequential().Allocate(context.Background(), "cat", root)
	require.NoError(t, err)

	assert.Equal(t, "cat_8", filepath.Base(path))
}

func TestSequential_UntitledSeed(t *testing.T) {
	root := t.TempDir()

	path, err := NewSequential().Allocate(context.Background(), "???", root)
	require.NoError(t, err)

	assert.Equal(t, "untitled_1", filepath.Base(path))
}

func TestSequential_ConcurrentCallersAreSerialized(t *testing.T) {
	root := t.TempDir()
	alloc := NewSequential()
	ctx := context.Background()
	n := 25

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		names []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path, err := alloc.Allocate(ctx, "race seed", root)
			assert.NoError(t, err)
			mu.Lock()
			names = append(names, filepath.Base(path))
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, names, n)
	unique := make(map[string]bool)
	for _, name := range names {
		unique[name] = true
	}
	assert.Len(t, unique, n, "every concurrent caller must get its own directory")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, n)

	sort.Strings(names)
	assert.Contains(t, names, "race_seed_1")
	assert.Contains(t, names, "race_seed_25")

	assert.Equal(t, 0, alloc.locks.size(), "lock entries must be released after use")
}

type recordingLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
	err      error
}

func (r *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.keys = append(r.keys, key)
	return func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.released++
		return nil
	}, nil
}

func TestSequential_UsesDistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	alloc := NewSequential(WithLocker(locker), WithLockTTL(time.Second))

	_, err := alloc.Allocate(context.Background(), "shared", t.TempDir())
	require.NoError(t, err)

	require.Len(t, locker.keys, 1)
	assert.Contains(t, locker.keys[0], "alloc:")
	assert.Contains(t, locker.keys[0], "shared")
	assert.Equal(t, 1, locker.released)
}

func TestSequential_LockerFailureIsAllocationFailure(t *testing.T) {
	locker := &recordingLocker{err: errors.New("redis down")}
	alloc := NewSequential(WithLocker(locker))
	root := t.TempDir()

	_, err := alloc.Allocate(context.Background(), "shared", root)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAllocationFailed)
	entries, _ := os.ReadDir(root)
	assert.Empty(t, entries, "nothing may be created without the lock")
}
