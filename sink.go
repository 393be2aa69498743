package thumbcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Dest is the destination hint attached to a diagnostic.
type Dest int

const (
	// Stderr marks failures and warnings.
	Stderr Dest = iota
	// Stdout marks informational messages.
	Stdout
)

func (d Dest) String() string {
	if d == Stdout {
		return "stdout"
	}
	return "stderr"
}

// Sink receives the diagnostics the cache would otherwise swallow.
//
// Log is called with the cache lock held and must not call back into the
// cache. A non-nil return value is handed back to the caller of the cache
// operation that produced the diagnostic.
type Sink interface {
	Log(dest Dest, args ...any) error
}

// SinkFunc adapts a function to the [Sink] interface.
type SinkFunc func(dest Dest, args ...any) error

// Log calls f(dest, args...).
func (f SinkFunc) Log(dest Dest, args ...any) error {
	return f(dest, args...)
}

// NewLogSink returns a sink that writes diagnostics to logger.
// Stderr diagnostics are logged at warn level, Stdout ones at info level.
// The first error among args is attached as the "error" attribute.
func NewLogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(dest Dest, args ...any) error {
		level := slog.LevelWarn
		if dest == Stdout {
			level = slog.LevelInfo
		}
		var (
			parts []any
			err   error
		)
		for _, a := range args {
			if e, ok := a.(error); ok && err == nil {
				err = e
				continue
			}
			parts = append(parts, a)
		}
		var attrs []slog.Attr
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(context.Background(), level, join(parts), attrs...)
		return nil
	})
}

// NewStrictSink returns a sink that turns every diagnostic into an [*Error].
func NewStrictSink() Sink {
	return SinkFunc(func(_ Dest, args ...any) error {
		e := &Error{Msg: join(args)}
		for _, a := range args {
			if err, ok := a.(error); ok {
				e.Err = err
				break
			}
		}
		return e
	})
}

// join renders fragments separated by single spaces.
func join(args []any) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}

// log reports a diagnostic and remembers any error the sink returns so the
// current operation can hand it back. Callers hold c.mu.
func (c *Cache) log(dest Dest, args ...any) {
	if err := c.sink.Log(dest, args...); err != nil {
		c.pending = append(c.pending, err)
	}
}

// flush returns and clears the errors collected during the current operation.
func (c *Cache) flush() error {
	err := errors.Join(c.pending...)
	c.pending = nil
	return err
}
