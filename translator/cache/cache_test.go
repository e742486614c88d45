package cache_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ownlingo/gamelingo/translator/cache"
	"github.com/stretchr/testify/require"
)

func TestCacheGetPut(t *testing.T) {
	c := cache.New()
	_, ok := c.Get("Hello")
	require.False(t, ok)

	c.Put("Hello", "Привет")
	got, ok := c.Get("Hello")
	require.True(t, ok)
	require.Equal(t, "Привет", got)

	c.Put("Hello", "Здравствуйте")
	got, _ = c.Get("Hello")
	require.Equal(t, "Здравствуйте", got)
	require.Equal(t, 1, c.Len())
}

func TestCacheSeedMergeSnapshot(t *testing.T) {
	c := cache.New()
	c.Seed(map[string]string{"a": "1", "b": "2"})

	other := cache.New()
	other.Put("c", "3")
	c.Merge(other)
	c.Merge(c)
	c.Merge(nil)

	snap := c.Snapshot()
	require.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, snap)

	snap["d"] = "4"
	_, ok := c.Get("d")
	require.False(t, ok, "snapshot must be a copy")
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := cache.New()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d", j)
				c.Put(key, fmt.Sprintf("v%d", i))
				_, _ = c.Get(key)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 100, c.Len())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := cache.OpenSQLite(ctx, path)
	require.NoError(t, err)

	c := cache.New()
	c.Put("Hello", "Привет")
	c.Put("it's \"quoted\"", "это «в кавычках»")
	require.NoError(t, c.SaveTo(ctx, store))

	c.Put("Hello", "Здравствуй")
	require.NoError(t, c.SaveTo(ctx, store))
	require.NoError(t, store.Close())

	store, err = cache.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	loaded := cache.New()
	require.NoError(t, loaded.LoadFrom(ctx, store))
	require.Equal(t, map[string]string{
		"Hello":           "Здравствуй",
		"it's \"quoted\"": "это «в кавычках»",
	}, loaded.Snapshot())
}
