package thumbcache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/meigma/thumbcache/internal/fileops"
	"github.com/meigma/thumbcache/internal/index"
	"github.com/meigma/thumbcache/internal/invalidlog"
	"github.com/meigma/thumbcache/internal/orderfile"
	"github.com/meigma/thumbcache/internal/pathutil"
)

// Thumbnail is a cached thumbnail as returned by [Cache.Lookup].
type Thumbnail struct {
	Data      []byte
	Timestamp float64
}

// Cache is a disk-backed LRU cache of thumbnails.
//
// All methods are serialized by a single mutex that is held across
// filesystem I/O. The directory is assumed to be owned by one Cache in one
// process.
type Cache struct {
	mu sync.Mutex

	location string
	name     string
	root     string // location/name

	requested    int64 // configured budget before the min-disk-cache rule
	minDiskCache int64
	maxSize      int64 // effective budget in bytes

	dims        index.Dimensions
	sizeChanged bool
	groupID     string

	dirPerm         os.FileMode
	loadConcurrency int

	logger   *slog.Logger
	sink     Sink
	testMode bool
	metrics  *metrics

	idx     *index.Index // nil until loaded
	pending []error
}

// DefaultLocation returns the parent directory used when [WithLocation] is
// not given: the user's cache directory.
func DefaultLocation() (string, error) {
	return os.UserCacheDir()
}

// New creates a cache. The index is not loaded and nothing is written to
// disk until the first operation that needs it.
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		name:            DefaultName,
		requested:       DefaultMaxSizeMB * mib,
		dims:            index.Dimensions{Width: DefaultWidth, Height: DefaultHeight},
		groupID:         DefaultGroupID,
		dirPerm:         defaultDirPerm,
		loadConcurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.location == "" {
		loc, err := DefaultLocation()
		if err != nil {
			return nil, fmt.Errorf("thumbcache: default location: %w", err)
		}
		c.location = loc
	}
	c.root = filepath.Join(c.location, c.name)
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	switch {
	case c.testMode:
		c.sink = NewStrictSink()
	case c.sink == nil:
		c.sink = NewLogSink(c.logger)
	}
	c.maxSize = c.effectiveSize(c.requested)
	c.metrics.setMaxBytes(c.maxSize)
	return c, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.root
}

// effectiveSize applies the min-disk-cache rule to a requested budget.
func (c *Cache) effectiveSize(requested int64) int64 {
	if requested <= c.minDiskCache {
		return 0
	}
	return requested
}

func (c *Cache) key(bookID int64) index.Key {
	return index.Key{Group: c.groupID, BookID: bookID}
}

func (c *Cache) orderPath() string {
	return filepath.Join(c.root, orderfile.Name)
}

func (c *Cache) invalidatePath() string {
	return filepath.Join(c.root, invalidlog.Name)
}

// SetGroupID changes the group used for subsequent keys. Existing entries
// are neither migrated nor invalidated; entries of other groups are only
// addressable again once their group is restored.
func (c *Cache) SetGroupID(group string) error {
	if group == "" {
		return ErrEmptyGroup
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupID = group
	return nil
}

// SetThumbnailSize changes the declared thumbnail dimensions. Entries of any
// other size are purged lazily by the next operation that consults them.
func (c *Cache) SetThumbnailSize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dims = index.Dimensions{Width: width, Height: height}
	c.sizeChanged = true
}

// SetSize changes the byte budget to mb megabytes and evicts as needed.
// A budget at or below the min-disk-cache threshold disables the cache.
func (c *Cache) SetSize(mb int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requested = int64(max(mb, 0)) * mib
	c.maxSize = c.effectiveSize(c.requested)
	c.metrics.setMaxBytes(c.maxSize)
	if c.idx != nil {
		c.applySize()
	}
	return c.flush()
}

// Insert stores data as the thumbnail of bookID in the current group.
//
// Payloads larger than the budget are silently ignored, as is every insert
// into a disabled cache. A write failure is reported to the sink and leaves
// no entry for bookID.
func (c *Cache) Insert(bookID int64, timestamp float64, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(data))
	if c.maxSize == 0 || size > c.maxSize {
		return nil
	}
	c.ensureLoaded()
	c.purgeStale()

	key := c.key(bookID)
	e := index.Entry{
		Path: pathutil.Join(c.root, key.Group, pathutil.Name{
			BookID:    bookID,
			Timestamp: timestamp,
			Size:      size,
			Width:     c.dims.Width,
			Height:    c.dims.Height,
		}),
		Size:      size,
		Timestamp: timestamp,
		Dims:      c.dims,
	}

	// The previous entry leaves the accounting now and is not restored if
	// the write fails.
	old, replaced := c.idx.Remove(key)
	if err := fileops.WriteFile(e.Path, data, c.dirPerm); err != nil {
		c.log(Stderr, "Failed to write cached thumbnail:", e.Path, err)
		c.applySize()
		return c.flush()
	}
	if replaced && old.Path != e.Path {
		c.deleteFile(old.Path)
	}
	c.idx.Push(key, e)
	c.metrics.insert()
	c.applySize()
	return c.flush()
}

// Lookup returns the thumbnail of bookID in the current group and marks it
// most recently used. ok is false on a miss, including when the cached file
// cannot be read.
func (c *Cache) Lookup(bookID int64) (thumb Thumbnail, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureLoaded()
	c.purgeStale()

	key := c.key(bookID)
	e, ok := c.idx.Get(key)
	if !ok {
		c.metrics.lookup(false)
		return Thumbnail{}, false, c.flush()
	}
	if e.Dims != c.dims {
		c.idx.Remove(key)
		c.deleteFile(e.Path)
		c.metrics.observe(c.idx)
		c.metrics.lookup(false)
		return Thumbnail{}, false, c.flush()
	}
	c.idx.Touch(key)

	data, readErr := os.ReadFile(e.Path)
	if readErr != nil {
		c.log(Stderr, "Failed to read cached thumbnail:", e.Path, readErr)
		c.metrics.lookup(false)
		return Thumbnail{}, false, c.flush()
	}
	c.metrics.lookup(true)
	return Thumbnail{Data: data, Timestamp: e.Timestamp}, true, c.flush()
}

// Contains reports whether bookID is cached in the current group.
// It does not change the LRU order.
func (c *Cache) Contains(bookID int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()
	_, ok := c.idx.Get(c.key(bookID))
	return ok, c.flush()
}

// Len returns the number of cached thumbnails across all groups.
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()
	return c.idx.Len(), c.flush()
}

// CurrentSize returns the total size in bytes of all cached thumbnails.
func (c *Cache) CurrentSize() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()
	return c.idx.TotalSize(), c.flush()
}

// Invalidate drops the thumbnails of bookIDs in the current group.
//
// If the index is loaded the entries and their files are removed at once.
// Otherwise the ids are appended to the invalidate log and applied on the
// next load, so no directory walk is needed now.
func (c *Cache) Invalidate(bookIDs ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.idx != nil {
		for _, id := range bookIDs {
			if e, ok := c.idx.Remove(c.key(id)); ok {
				c.deleteFile(e.Path)
				c.metrics.invalidate()
			}
		}
		c.metrics.observe(c.idx)
		return c.flush()
	}

	if len(bookIDs) == 0 || !fileops.DirExists(c.root) {
		return c.flush()
	}
	keys := make([]index.Key, len(bookIDs))
	for i, id := range bookIDs {
		keys[i] = c.key(id)
	}
	if err := invalidlog.Append(c.invalidatePath(), keys...); err != nil {
		c.log(Stderr, "Failed to write thumbnail invalidation log:", err)
	}
	return c.flush()
}

// Clear removes every cached thumbnail and the persisted LRU order.
// The cache stays usable afterwards.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := orderfile.Remove(c.orderPath()); err != nil {
		c.log(Stderr, "Failed to remove thumbnail cache order:", err)
	}
	c.ensureLoaded()
	for _, e := range c.idx.Clear() {
		c.deleteFile(e.Path)
	}
	c.metrics.observe(c.idx)
	return c.flush()
}

// Shutdown persists the LRU order so the next load can restore it.
// It is a no-op if the index was never loaded.
func (c *Cache) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.idx == nil {
		return nil
	}
	if err := orderfile.Write(c.orderPath(), c.idx.Keys()); err != nil {
		c.log(Stderr, "Failed to save thumbnail cache ordering:", err)
	}
	return c.flush()
}
