package thumbcache

import (
	"math/rand/v2"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/thumbcache/internal/testutil"
)

// checkIndex asserts the accounting and on-disk invariants of a loaded cache.
func checkIndex(t *testing.T, c *Cache) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotNil(t, c.idx)

	var sum int64
	paths := make(map[string]struct{}, c.idx.Len())
	for k, e := range c.idx.All() {
		sum += e.Size
		_, dup := paths[e.Path]
		assert.False(t, dup, "path %s indexed twice", e.Path)
		paths[e.Path] = struct{}{}

		info, err := os.Stat(e.Path)
		if assert.NoError(t, err, "key %v", k) {
			assert.Equal(t, e.Size, info.Size(), "key %v", k)
		}
	}
	assert.Equal(t, sum, c.idx.TotalSize())
	if c.idx.Len() > 0 {
		assert.LessOrEqual(t, c.idx.TotalSize(), c.maxSize)
	}
}

func TestInvariantsUnderRandomOperations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := newTestCache(t, dir, WithMaxBytes(64*kib))
	r := rand.New(rand.NewPCG(1, 2))

	for step := range 500 {
		id := int64(r.IntN(40))
		switch op := r.IntN(10); {
		case op < 4:
			require.NoError(t, c.Insert(id, float64(step), testutil.Payload(1+r.IntN(8*kib), byte(id))))
		case op < 7:
			_, _, err := c.Lookup(id)
			require.NoError(t, err)
		case op == 7:
			require.NoError(t, c.Invalidate(id, id+1))
		case op == 8:
			require.NoError(t, c.SetGroupID([]string{"a", "b", "group"}[r.IntN(3)]))
		default:
			w := []int{100, 120}[r.IntN(2)]
			c.SetThumbnailSize(w, w)
		}
		_, err := c.Len()
		require.NoError(t, err)
		checkIndex(t, c)
	}

	// Drop entries of an earlier size so the count matches what a reload keeps.
	_, _, err := c.Lookup(-1)
	require.NoError(t, err)
	require.NoError(t, c.Shutdown())
	n, err := c.Len()
	require.NoError(t, err)

	reopened := newTestCache(t, dir, WithMaxBytes(64*kib))
	c.mu.Lock()
	dims := c.dims
	c.mu.Unlock()
	reopened.SetThumbnailSize(dims.Width, dims.Height)
	m, err := reopened.Len()
	require.NoError(t, err)
	assert.Equal(t, n, m)
	checkIndex(t, reopened)
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, t.TempDir(), WithMaxBytes(32*kib))
	var wg sync.WaitGroup
	errs := make(chan error, 8*200)
	for w := range 8 {
		wg.Go(func() {
			for i := range 200 {
				id := int64((w*7 + i) % 25)
				if i%3 == 0 {
					errs <- c.Insert(id, float64(i), testutil.Payload(1*kib, byte(w)))
					continue
				}
				_, _, err := c.Lookup(id)
				errs <- err
			}
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	checkIndex(t, c)
}
