package ml

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLinear(t *testing.T, path string, weights ...float64) {
	t.Helper()
	require.NoError(t, SaveArtifact(path, &LinearModel{Weights: weights}))
}

func TestFileLoaderMissingArtifact(t *testing.T) {
	loader := NewFileLoader(nil)
	predictor, ok := loader.Load(filepath.Join(t.TempDir(), "model.json"))
	assert.False(t, ok)
	assert.Nil(t, predictor)
}

func TestFileLoaderCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("not a model"), 0o600))

	_, ok := NewFileLoader(nil).Load(path)
	assert.False(t, ok)
}

func TestFileLoaderRejectsDirectoryAndEmptyPath(t *testing.T) {
	loader := NewFileLoader(nil)
	_, ok := loader.Load(t.TempDir())
	assert.False(t, ok)
	_, ok = loader.Load("")
	assert.False(t, ok)
}

func TestFileLoaderReadsEveryCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeLinear(t, path, 1)
	loader := NewFileLoader(nil)

	first, ok := loader.Load(path)
	require.True(t, ok)
	second, ok := loader.Load(path)
	require.True(t, ok)
	assert.NotSame(t, first, second)
}

func TestCachedLoaderHitsWhileUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeLinear(t, path, 1, 2)

	loader, err := NewCachedLoader(2, nil)
	require.NoError(t, err)

	first, ok := loader.Load(path)
	require.True(t, ok)
	second, ok := loader.Load(path)
	require.True(t, ok)
	assert.Same(t, first, second)

	stats := loader.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestCachedLoaderReloadsOnModTimeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeLinear(t, path, 1)

	loader, err := NewCachedLoader(2, nil)
	require.NoError(t, err)
	first, ok := loader.Load(path)
	require.True(t, ok)

	writeLinear(t, path, 5)
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	second, ok := loader.Load(path)
	require.True(t, ok)
	assert.NotSame(t, first, second)

	out, err := second.Predict([][]float64{{1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, out)
	assert.Equal(t, uint64(1), loader.Stats().Reloads)
}

func TestCachedLoaderEvictsRemovedArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeLinear(t, path, 1)

	loader, err := NewCachedLoader(2, nil)
	require.NoError(t, err)
	_, ok := loader.Load(path)
	require.True(t, ok)

	require.NoError(t, os.Remove(path))
	_, ok = loader.Load(path)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), loader.Stats().Evictions)
}

func TestCachedLoaderCorruptReplacement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeLinear(t, path, 1)

	loader, err := NewCachedLoader(2, nil)
	require.NoError(t, err)
	_, ok := loader.Load(path)
	require.True(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	_, ok = loader.Load(path)
	assert.False(t, ok)
}

func TestCachedLoaderConcurrentLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeLinear(t, path, 1, 1)

	loader, err := NewCachedLoader(2, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := loader.Load(path)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(1), loader.Stats().Misses)
}

func TestCachedLoaderWatchInvalidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeLinear(t, path, 1)

	loader, err := NewCachedLoader(2, nil)
	require.NoError(t, err)
	_, ok := loader.Load(path)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loader.Watch(ctx, path) }()

	require.Eventually(t, func() bool {
		// rewrite until the watcher is registered and observes the change
		_ = SaveArtifact(path, &LinearModel{Weights: []float64{2}})
		return loader.Stats().Evictions > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
