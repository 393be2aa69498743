// Package thumbcache provides a persistent, size-bounded, disk-backed cache of
// book cover thumbnails.
//
// Each thumbnail is keyed by a group label and a numeric book id and stored as
// a single file whose name encodes everything needed to rebuild the in-memory
// index from the directory tree:
//
//	{location}/{name}/{group}/{book_id mod 100}/{book_id}-{ts}-{bytes}-{W}x{H}
//
// The cache enforces a total byte budget with least-recently-used eviction.
// The index is loaded lazily on first use and its LRU order is persisted on
// [Cache.Shutdown].
//
// # Quick Start
//
//	c, err := thumbcache.New(
//	    thumbcache.WithLocation("/var/cache/library"),
//	    thumbcache.WithMaxSizeMB(256),
//	)
//	if err != nil {
//	    return err
//	}
//	defer c.Shutdown()
//
//	_ = c.Insert(42, mtime, jpegBytes)
//	thumb, ok, _ := c.Lookup(42)
//
// # Failure model
//
// The cache never fails a caller because of its own disk: read, write and
// delete failures are reported to a [Sink] and the operation degrades to a
// miss. With [WithTestMode] the sink is replaced by a strict one and those
// failures are returned as [*Error] values instead.
//
// # Resizing
//
// [Cache.SetThumbnailSize] does not touch the disk. Entries rendered at the
// old size are purged by the next operation that reads or modifies the index.
//
// # Deferred invalidation
//
// [Cache.Invalidate] on a cache whose index has not been loaded appends to an
// on-disk log instead of walking the tree. The log is applied and removed the
// next time any cache instance loads the index from the same directory.
package thumbcache
