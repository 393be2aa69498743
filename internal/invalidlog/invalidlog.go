// Package invalidlog implements the append-only log of invalidations issued
// while the index is not loaded.
//
// Each record is one ASCII line, "{group} {book_id}\n". The log is consumed
// and removed the next time the index is loaded.
package invalidlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/meigma/thumbcache/internal/index"
)

// Name is the invalidate log file name at the cache root.
const Name = "invalidate"

const filePerm = 0o600

// Set is a set of invalidated keys.
type Set map[index.Key]struct{}

// Has reports whether k is in the set.
func (s Set) Has(k index.Key) bool {
	_, ok := s[k]
	return ok
}

// Append adds one record per key to the log at path, creating it if needed.
func Append(path string, keys ...index.Key) error {
	if len(keys) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(k.Group)
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(k.BookID, 10))
		buf.WriteByte('\n')
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, filePerm) //nolint:gosec // path is the cache's own log
	if err != nil {
		return fmt.Errorf("open invalidate log: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append invalidate log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close invalidate log: %w", err)
	}
	return nil
}

// Parse decodes log records. Malformed lines are skipped.
func Parse(data []byte) Set {
	set := make(Set)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		bookID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		set[index.Key{Group: fields[0], BookID: bookID}] = struct{}{}
	}
	return set
}

// Read returns the keys recorded in the log at path.
// A missing log yields an empty set and no error.
func Read(path string) (Set, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is the cache's own log
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Set{}, nil
		}
		return Set{}, fmt.Errorf("read invalidate log: %w", err)
	}
	return Parse(data), nil
}

// Remove deletes the log at path. A missing log is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove invalidate log: %w", err)
	}
	return nil
}
