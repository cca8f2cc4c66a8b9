package artifact

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingLoader(calls *atomic.Int32) LoadFunc[string] {
	return func(path string) (string, error) {
		calls.Add(1)
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func TestRegistry_CachesUntilFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	var calls atomic.Int32
	reg := NewRegistry(countingLoader(&calls))

	got, err := reg.Get(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	got, err = reg.Get(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", got)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, os.WriteFile(path, []byte("v2-updated"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	got, err = reg.Get(path)
	require.NoError(t, err)
	assert.Equal(t, "v2-updated", got, "updated artifact must not be served stale")
	assert.Equal(t, int32(2), calls.Load())

	hits, misses := reg.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestRegistry_MissingFileEvicts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	var calls atomic.Int32
	reg := NewRegistry(countingLoader(&calls))

	_, err := reg.Get(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	require.NoError(t, os.Remove(path))

	_, err = reg.Get(path)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_LoadErrorNotCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	reg := NewRegistry(func(string) (string, error) {
		return "", assert.AnError
	})

	_, err := reg.Get(path)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_ConcurrentGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte("shared"), 0o644))

	var calls atomic.Int32
	reg := NewRegistry(countingLoader(&calls))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := reg.Get(path)
			assert.NoError(t, err)
			assert.Equal(t, "shared", got)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(32))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_InvalidateAndPurge(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	var calls atomic.Int32
	reg := NewRegistry(countingLoader(&calls))
	_, _ = reg.Get(a)
	_, _ = reg.Get(b)
	assert.Equal(t, 2, reg.Len())

	reg.Invalidate(a)
	assert.Equal(t, 1, reg.Len())

	reg.Purge()
	assert.Equal(t, 0, reg.Len())
}
