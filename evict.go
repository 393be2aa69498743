package thumbcache

import (
	"github.com/meigma/thumbcache/internal/fileops"
	"github.com/meigma/thumbcache/internal/index"
)

// applySize evicts least recently used entries until the index fits the
// budget. Callers hold c.mu and have loaded the index.
func (c *Cache) applySize() {
	for c.idx.TotalSize() > c.maxSize {
		_, e, ok := c.idx.PopOldest()
		if !ok {
			break
		}
		c.deleteFile(e.Path)
		c.metrics.evict()
	}
	c.metrics.observe(c.idx)
}

// purgeStale drops every entry rendered at a size other than the current
// one, if the size changed since the last purge. Callers hold c.mu and have
// loaded the index.
func (c *Cache) purgeStale() {
	if !c.sizeChanged {
		return
	}
	dims := c.dims
	for _, e := range c.idx.RemoveFunc(func(_ index.Key, e index.Entry) bool {
		return e.Dims != dims
	}) {
		c.deleteFile(e.Path)
	}
	c.sizeChanged = false
	c.metrics.observe(c.idx)
}

func (c *Cache) deleteFile(path string) {
	if err := fileops.Remove(path); err != nil {
		c.log(Stderr, "Failed to delete cached thumbnail file:", path, err)
	}
}
