package thumbcache

import (
	"cmp"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/thumbcache/internal/fileops"
	"github.com/meigma/thumbcache/internal/index"
	"github.com/meigma/thumbcache/internal/invalidlog"
	"github.com/meigma/thumbcache/internal/orderfile"
	"github.com/meigma/thumbcache/internal/pathutil"
)

type scanned struct {
	key   index.Key
	entry index.Entry
	rank  int
}

// problem is a diagnostic produced off the cache goroutine. It is reported
// once the walk has finished.
type problem struct {
	msg  string
	path string
	err  error
}

type shardDir struct {
	group string
	shard string
}

type shardResult struct {
	found    []scanned
	problems []problem
}

func (r *shardResult) remove(path string) {
	if err := fileops.Remove(path); err != nil {
		r.problems = append(r.problems, problem{"Failed to delete cached thumbnail file:", path, err})
	}
}

func (c *Cache) ensureLoaded() {
	if c.idx == nil {
		c.load()
	}
}

// load rebuilds the index from the directory tree. Invalidated keys and
// thumbnails of the wrong size are deleted on the way; the persisted order
// is applied and the budget enforced.
func (c *Cache) load() {
	start := time.Now()
	c.idx = index.New()

	if err := os.MkdirAll(c.root, c.dirPerm); err != nil {
		c.log(Stderr, "Failed to create thumbnail cache directory:", c.root, err)
	}

	ranks, err := orderfile.Read(c.orderPath())
	if err != nil {
		c.log(Stderr, "Failed to load thumbnail cache order:", err)
	}
	invalid, invalidErr := invalidlog.Read(c.invalidatePath())
	if invalidErr != nil {
		c.log(Stderr, "Failed to read thumbnail invalidation log:", invalidErr)
	}

	found := c.scan(invalid)

	if invalidErr == nil {
		if err := invalidlog.Remove(c.invalidatePath()); err != nil {
			c.log(Stderr, "Failed to remove thumbnail invalidation log:", err)
		}
	}

	// Entries missing from the order file rank 0, next to the oldest known
	// entry, and keep walk order among equal ranks.
	for i := range found {
		found[i].rank = ranks[orderfile.Fingerprint(found[i].key)]
	}
	slices.SortStableFunc(found, func(a, b scanned) int {
		return cmp.Compare(a.rank, b.rank)
	})
	for _, s := range found {
		c.idx.Push(s.key, s.entry)
	}
	c.sizeChanged = false
	c.applySize()

	elapsed := time.Since(start)
	c.metrics.loaded(elapsed)
	c.logger.Debug("thumbnail cache loaded",
		slog.String("dir", c.root),
		slog.Int("entries", c.idx.Len()),
		slog.Int64("bytes", c.idx.TotalSize()),
		slog.Duration("duration", elapsed))
}

// scan walks every group/shard directory, fanning out across shards.
func (c *Cache) scan(invalid invalidlog.Set) []scanned {
	dirs := c.shardDirs()
	results := make([]shardResult, len(dirs))
	dims := c.dims

	var g errgroup.Group
	g.SetLimit(c.loadConcurrency)
	for i, d := range dirs {
		g.Go(func() error {
			results[i] = scanShard(c.root, d, dims, invalid)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // shard scans report problems, not errors

	var found []scanned
	for _, r := range results {
		for _, p := range r.problems {
			c.log(Stderr, p.msg, p.path, p.err)
		}
		found = append(found, r.found...)
	}
	return found
}

// shardDirs lists {group}/{shard} directories in lexical order.
func (c *Cache) shardDirs() []shardDir {
	groups, err := os.ReadDir(c.root)
	if err != nil {
		c.log(Stderr, "Failed to read thumbnail cache dir:", c.root, err)
		return nil
	}
	var dirs []shardDir
	for _, g := range groups {
		if !g.IsDir() {
			continue
		}
		groupDir := filepath.Join(c.root, g.Name())
		shards, err := os.ReadDir(groupDir)
		if err != nil {
			c.log(Stderr, "Failed to read thumbnail cache dir:", groupDir, err)
			continue
		}
		for _, s := range shards {
			if s.IsDir() {
				dirs = append(dirs, shardDir{group: g.Name(), shard: s.Name()})
			}
		}
	}
	return dirs
}

func scanShard(root string, d shardDir, dims index.Dimensions, invalid invalidlog.Set) shardResult {
	var res shardResult
	dir := filepath.Join(root, d.group, d.shard)
	names, err := os.ReadDir(dir)
	if err != nil {
		res.problems = append(res.problems, problem{"Failed to read thumbnail cache dir:", dir, err})
		return res
	}

	seen := make(map[int64]int)
	for _, de := range names {
		if !de.Type().IsRegular() {
			continue
		}
		n, ok := pathutil.ParseBase(de.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, de.Name())
		key := index.Key{Group: d.group, BookID: n.BookID}
		entryDims := index.Dimensions{Width: n.Width, Height: n.Height}
		// A thumbnail outside its shard can never be looked up.
		if !pathutil.InShard(d.shard, n) || invalid.Has(key) || entryDims != dims {
			res.remove(path)
			continue
		}

		s := scanned{
			key: key,
			entry: index.Entry{
				Path:      path,
				Size:      n.Size,
				Timestamp: n.Timestamp,
				Dims:      entryDims,
			},
		}
		// Keep the newest file when a key appears twice.
		if i, dup := seen[n.BookID]; dup {
			stale := path
			if n.Timestamp > res.found[i].entry.Timestamp {
				stale = res.found[i].entry.Path
				res.found[i] = s
			}
			res.remove(stale)
			continue
		}
		seen[n.BookID] = len(res.found)
		res.found = append(res.found, s)
	}
	return res
}
