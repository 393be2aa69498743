package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/thumbcache"
)

func TestParseJSONC(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`{
		// where thumbnails live
		"location": "/var/cache/books",
		"max_size": "512MB",
		"thumbnail_width": 160,
		"thumbnail_height": 240, // portrait covers
		"group_id": "library-1",
	}`))
	require.NoError(t, err)

	assert.Equal(t, Config{
		Location:        "/var/cache/books",
		Name:            thumbcache.DefaultName,
		MaxSize:         512 * datasize.MB,
		ThumbnailWidth:  160,
		ThumbnailHeight: 240,
		GroupID:         "library-1",
	}, cfg)
}

func TestParseEmptyObjectYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, uint64(thumbcache.DefaultMaxSizeMB)<<20, cfg.MaxSize.Bytes())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "empty name", data: `{"name": ""}`, want: errEmptyName},
		{name: "empty group", data: `{"group_id": ""}`, want: errEmptyGroup},
		{name: "zero width", data: `{"thumbnail_width": 0}`, want: errBadDimensions},
		{name: "negative min", data: `{"min_disk_cache_mb": -1}`, want: errNegativeMin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Parse([]byte(`{"name": `))
	assert.ErrorContains(t, err, "invalid JSONC")
	_, err = Parse([]byte(`{"max_size": "lots"}`))
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "thumbcache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "covers"}`), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "covers", cfg.Name)

	require.NoError(t, os.WriteFile(path, []byte(`{"name": ""}`), 0o600))
	_, err = Load(path)
	require.ErrorIs(t, err, errInvalid)
	assert.ErrorContains(t, err, path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestOptionsConfigureCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := Default()
	cfg.Location = dir
	cfg.Name = "covers"
	cfg.MaxSize = 3 * datasize.MB
	cfg.ThumbnailWidth, cfg.ThumbnailHeight = 50, 75
	cfg.GroupID = "shelf"

	c, err := thumbcache.New(append(cfg.Options(), thumbcache.WithTestMode(true))...)
	require.NoError(t, err)
	stats, err := c.Stats()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "covers"), stats.Dir)
	assert.Equal(t, int64(3<<20), stats.MaxBytes)
	assert.Equal(t, "shelf", stats.Group)
	assert.Equal(t, 50, stats.Width)
	assert.Equal(t, 75, stats.Height)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	out, err := Format(Default())
	require.NoError(t, err)
	assert.Contains(t, out, `"max_size": "1GB"`)

	back, err := Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, Default(), back)
}
