// Package config loads thumbnail cache settings from a JSONC file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/tailscale/hujson"

	"github.com/meigma/thumbcache"
)

var (
	errInvalid       = errors.New("invalid config")
	errEmptyName     = errors.New("name must not be empty")
	errEmptyGroup    = errors.New("group_id must not be empty")
	errBadDimensions = errors.New("thumbnail dimensions must be positive")
	errNegativeMin   = errors.New("min_disk_cache_mb must not be negative")
)

// Config holds the settings of a thumbnail cache.
//
//nolint:tagliatelle // snake_case for config file
type Config struct {
	Location        string            `json:"location,omitempty"`
	Name            string            `json:"name"`
	MaxSize         datasize.ByteSize `json:"max_size"`
	MinDiskCacheMB  int               `json:"min_disk_cache_mb,omitempty"`
	ThumbnailWidth  int               `json:"thumbnail_width"`
	ThumbnailHeight int               `json:"thumbnail_height"`
	GroupID         string            `json:"group_id"`
}

// Default returns the configuration New uses when given no options.
func Default() Config {
	return Config{
		Name:            thumbcache.DefaultName,
		MaxSize:         datasize.ByteSize(thumbcache.DefaultMaxSizeMB) * datasize.MB,
		ThumbnailWidth:  thumbcache.DefaultWidth,
		ThumbnailHeight: thumbcache.DefaultHeight,
		GroupID:         thumbcache.DefaultGroupID,
	}
}

// Load reads the JSONC file at path over the defaults.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errInvalid, path, err)
	}
	return cfg, nil
}

// Parse decodes JSONC over the defaults and validates the result.
// Fields absent from data keep their default values.
func Parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Name == "":
		return errEmptyName
	case c.GroupID == "":
		return errEmptyGroup
	case c.ThumbnailWidth <= 0 || c.ThumbnailHeight <= 0:
		return errBadDimensions
	case c.MinDiskCacheMB < 0:
		return errNegativeMin
	}
	return nil
}

// Options converts the configuration into cache options.
func (c Config) Options() []thumbcache.Option {
	opts := []thumbcache.Option{
		thumbcache.WithName(c.Name),
		thumbcache.WithMaxBytes(int64(c.MaxSize.Bytes())), //nolint:gosec // sizes beyond int64 are not meaningful
		thumbcache.WithMinDiskCacheMB(c.MinDiskCacheMB),
		thumbcache.WithThumbnailSize(c.ThumbnailWidth, c.ThumbnailHeight),
		thumbcache.WithGroupID(c.GroupID),
	}
	if c.Location != "" {
		opts = append(opts, thumbcache.WithLocation(c.Location))
	}
	return opts
}

// Format returns the configuration as indented JSON.
func Format(c Config) (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format config: %w", err)
	}
	return string(data), nil
}
