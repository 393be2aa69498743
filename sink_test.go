package thumbcache

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewLogSink(logger)

	err := sink.Log(Stderr, "Failed to delete cached thumbnail file:", "/tmp/x", fs.ErrPermission)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="Failed to delete cached thumbnail file: /tmp/x"`)
	assert.Contains(t, out, `error="permission denied"`)

	buf.Reset()
	require.NoError(t, sink.Log(Stdout, "cache ready"))
	assert.Contains(t, buf.String(), "level=INFO")
	assert.NotContains(t, buf.String(), "error=")
}

func TestStrictSink(t *testing.T) {
	t.Parallel()

	err := NewStrictSink().Log(Stderr, "Failed to read cached thumbnail:", "/tmp/x", fs.ErrNotExist)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Failed to read cached thumbnail: /tmp/x file does not exist", cerr.Msg)
	assert.Equal(t, "thumbcache: "+cerr.Msg, cerr.Error())
	assert.ErrorIs(t, err, fs.ErrNotExist)

	err = NewStrictSink().Log(Stdout, "no error here")
	require.ErrorAs(t, err, &cerr)
	assert.NoError(t, errors.Unwrap(err))
}

func TestDestString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "stderr", Stderr.String())
	assert.Equal(t, "stdout", Stdout.String())
}
