package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/thumbcache/internal/testutil"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeThumb(t *testing.T, data string) string {
	t.Helper()
	return testutil.WriteFile(t, t.TempDir(), "thumb.jpg", []byte(data))
}

func TestInsertLookupRoundTrip(t *testing.T) {
	t.Parallel()

	loc := t.TempDir()
	src := writeThumb(t, "cover")

	r := runCLI(t, "--location", loc, "insert", "42", "1700000000.5", src)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "book 42: stored 5 bytes\n", r.stdout)

	out := filepath.Join(t.TempDir(), "out.jpg")
	r = runCLI(t, "--location", loc, "lookup", "42", "-o", out)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "book 42: 5 bytes, timestamp 1700000000.5\n", r.stdout)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "cover", string(data))
}

func TestLookupMiss(t *testing.T) {
	t.Parallel()

	r := runCLI(t, "--location", t.TempDir(), "lookup", "7")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "book 7: not cached")
}

func TestGroupFlagSeparatesEntries(t *testing.T) {
	t.Parallel()

	loc := t.TempDir()
	src := writeThumb(t, "cover")
	require.Equal(t, 0, runCLI(t, "--location", loc, "-g", "a", "insert", "1", "1", src).code)

	assert.Equal(t, 1, runCLI(t, "--location", loc, "-g", "b", "lookup", "1").code)
	assert.Equal(t, 0, runCLI(t, "--location", loc, "-g", "a", "lookup", "1").code)
}

func TestInvalidateAndClear(t *testing.T) {
	t.Parallel()

	loc := t.TempDir()
	src := writeThumb(t, "cover")
	for _, id := range []string{"1", "2", "3"} {
		require.Equal(t, 0, runCLI(t, "--location", loc, "insert", id, "1", src).code)
	}

	r := runCLI(t, "--location", loc, "invalidate", "1", "2")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, 1, runCLI(t, "--location", loc, "lookup", "1").code)

	r = runCLI(t, "--location", loc, "stats")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Regexp(t, `entries\s+1\n`, r.stdout)

	require.Equal(t, 0, runCLI(t, "--location", loc, "clear").code)
	r = runCLI(t, "--location", loc, "stats")
	assert.Regexp(t, `entries\s+0\n`, r.stdout)
}

func TestStats(t *testing.T) {
	t.Parallel()

	loc := t.TempDir()
	r := runCLI(t, "--location", loc, "--name", "covers", "--width", "64", "--height", "96", "stats")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Regexp(t, `dir\s+`+regexp.QuoteMeta(filepath.Join(loc, "covers"))+`\n`, r.stdout)
	assert.Regexp(t, `thumbnail\s+64x96\n`, r.stdout)
	assert.Regexp(t, `group\s+group\n`, r.stdout)
}

func TestConfigFileWithFlagOverride(t *testing.T) {
	t.Parallel()

	loc := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "thumbcache.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{
		// shared settings
		"location": "`+filepath.ToSlash(loc)+`",
		"name": "from-config",
		"group_id": "cfg-group",
	}`), 0o600))

	r := runCLI(t, "--config", cfgPath, "--group", "flag-group", "stats")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "from-config")
	assert.Regexp(t, `group\s+flag-group\n`, r.stdout)
}

func TestOversizeInsertReported(t *testing.T) {
	t.Parallel()

	src := writeThumb(t, "0123456789")
	r := runCLI(t, "--location", t.TempDir(), "--max-size", "8B", "insert", "1", "1", src)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "not stored")
}

func TestUsageErrors(t *testing.T) {
	t.Parallel()

	loc := t.TempDir()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no command", args: []string{"--location", loc}, want: "Usage: thumbcache"},
		{name: "unknown command", args: []string{"--location", loc, "frobnicate"}, want: `unknown command "frobnicate"`},
		{name: "bad global flag", args: []string{"--nope"}, want: "unknown flag"},
		{name: "bad book id", args: []string{"--location", loc, "lookup", "abc"}, want: `invalid book id "abc"`},
		{name: "missing args", args: []string{"--location", loc, "insert", "1"}, want: "wrong number of arguments"},
		{name: "bad max size", args: []string{"--location", loc, "--max-size", "huge", "stats"}, want: "--max-size"},
		{name: "empty group", args: []string{"--location", loc, "--group", "", "stats"}, want: "group_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := runCLI(t, tt.args...)
			assert.Equal(t, 1, r.code)
			assert.Contains(t, r.stderr, tt.want)
		})
	}
}

func TestHelp(t *testing.T) {
	t.Parallel()

	r := runCLI(t, "--help")
	assert.Equal(t, 0, r.code)
	for _, name := range commandOrder {
		assert.Contains(t, r.stdout, name)
	}

	r = runCLI(t, "--location", t.TempDir(), "lookup", "--help")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "--output")
}

// Not parallel: CPU profiling is process-wide.
func TestBench(t *testing.T) {
	loc := t.TempDir()
	cpu := filepath.Join(t.TempDir(), "cpu.pprof")
	r := runCLI(t, "--location", loc, "--max-size", "64KB",
		"bench", "--ops", "200", "--books", "20", "--payload", "1KB", "--cpuprofile", cpu)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Regexp(t, `^ops=200 hits=\d+ misses=\d+ bytes=\d+ `, r.stdout)
	assert.FileExists(t, cpu)
}
