package thumbcache

import (
	"errors"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Cache.
type Option func(*Cache) error

// Defaults used by New.
const (
	DefaultMaxSizeMB = 1024
	DefaultName      = "thumbnail-cache"
	DefaultGroupID   = "group"
	DefaultWidth     = 100
	DefaultHeight    = 100

	defaultDirPerm = 0o700
	mib            = 1 << 20
)

// --- Size Options ---

// WithMaxSizeMB sets the byte budget in megabytes (1 MB = 1 MiB).
// Negative values are treated as 0. Defaults to [DefaultMaxSizeMB].
func WithMaxSizeMB(mb int) Option {
	return func(c *Cache) error {
		c.requested = int64(max(mb, 0)) * mib
		return nil
	}
}

// WithMaxBytes sets the byte budget directly.
// Negative values are treated as 0.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) error {
		c.requested = max(n, 0)
		return nil
	}
}

// WithMinDiskCacheMB sets the threshold at or below which the cache is
// disabled. A budget of at most mb megabytes becomes 0 and every insert is a
// no-op. Defaults to 0.
func WithMinDiskCacheMB(mb int) Option {
	return func(c *Cache) error {
		c.minDiskCache = int64(max(mb, 0)) * mib
		return nil
	}
}

// WithThumbnailSize sets the initial declared thumbnail dimensions.
// Defaults to [DefaultWidth] x [DefaultHeight].
func WithThumbnailSize(width, height int) Option {
	return func(c *Cache) error {
		if width <= 0 || height <= 0 {
			return ErrInvalidThumbnailSize
		}
		c.dims.Width, c.dims.Height = width, height
		return nil
	}
}

// --- Location Options ---

// WithLocation sets the parent directory of the cache.
// Defaults to [DefaultLocation].
func WithLocation(dir string) Option {
	return func(c *Cache) error {
		if dir == "" {
			return errors.New("thumbcache: location is empty")
		}
		c.location = dir
		return nil
	}
}

// WithName sets the cache subdirectory under the location.
// Defaults to [DefaultName].
func WithName(name string) Option {
	return func(c *Cache) error {
		if name == "" {
			return ErrEmptyName
		}
		c.name = name
		return nil
	}
}

// WithGroupID sets the initial group label. Defaults to [DefaultGroupID].
func WithGroupID(group string) Option {
	return func(c *Cache) error {
		if group == "" {
			return ErrEmptyGroup
		}
		c.groupID = group
		return nil
	}
}

// WithDirPerm sets the permissions used for cache directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) error {
		c.dirPerm = mode
		return nil
	}
}

// WithLoadConcurrency bounds the number of shard directories scanned in
// parallel while loading the index. Defaults to GOMAXPROCS.
func WithLoadConcurrency(n int) Option {
	return func(c *Cache) error {
		if n <= 0 {
			return ErrInvalidConcurrency
		}
		c.loadConcurrency = n
		return nil
	}
}

// --- Diagnostics Options ---

// WithLogger sets the logger used by the default sink and for lifecycle
// messages. If nil, a text logger on stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) error {
		c.logger = logger
		return nil
	}
}

// WithSink replaces the diagnostic sink.
// It is ignored when test mode is enabled.
func WithSink(sink Sink) Option {
	return func(c *Cache) error {
		c.sink = sink
		return nil
	}
}

// WithTestMode replaces the sink with [NewStrictSink], so filesystem failures
// that are normally logged are returned from the failing operation.
func WithTestMode(enabled bool) Option {
	return func(c *Cache) error {
		c.testMode = enabled
		return nil
	}
}

// WithMetrics registers cache metrics under namespace with reg.
func WithMetrics(namespace string, reg prometheus.Registerer) Option {
	return func(c *Cache) error {
		m, err := newMetrics(namespace, reg)
		if err != nil {
			return err
		}
		c.metrics = m
		return nil
	}
}
