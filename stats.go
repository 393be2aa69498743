package thumbcache

// Stats is a snapshot of the cache state.
type Stats struct {
	Dir      string
	Group    string
	Width    int
	Height   int
	Entries  int
	Bytes    int64
	MaxBytes int64
}

// Stats loads the index if needed and returns a snapshot.
func (c *Cache) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()
	return Stats{
		Dir:      c.root,
		Group:    c.groupID,
		Width:    c.dims.Width,
		Height:   c.dims.Height,
		Entries:  c.idx.Len(),
		Bytes:    c.idx.TotalSize(),
		MaxBytes: c.maxSize,
	}, c.flush()
}
