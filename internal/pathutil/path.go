// Package pathutil derives and parses the on-disk names of cached thumbnails.
//
// A cached thumbnail lives at
//
//	{group}/{book_id mod 100}/{book_id}-{ts}-{n_bytes}-{w}x{h}
//
// relative to the cache root. Every field needed to rebuild the index is
// encoded in the name, so the directory tree alone describes the cache.
package pathutil

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Shards is the number of per-group subdirectories.
const Shards = 100

// Name holds the fields encoded in a thumbnail file name.
type Name struct {
	BookID    int64
	Timestamp float64
	Size      int64
	Width     int
	Height    int
}

// FormatTimestamp renders ts with two decimals, dropping a trailing ".00".
func FormatTimestamp(ts float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(ts, 'f', 2, 64), ".00")
}

// Shard returns the shard directory name for bookID.
func Shard(bookID int64) string {
	return strconv.FormatInt(bookID%Shards, 10)
}

// Base returns the file name for n.
func Base(n Name) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(n.BookID, 10))
	b.WriteByte('-')
	b.WriteString(FormatTimestamp(n.Timestamp))
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(n.Size, 10))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(n.Width))
	b.WriteByte('x')
	b.WriteString(strconv.Itoa(n.Height))
	return b.String()
}

// Join returns the absolute path of the thumbnail described by n under root.
func Join(root, group string, n Name) string {
	return filepath.Join(root, group, Shard(n.BookID), Base(n))
}

// ParseBase parses a thumbnail file name.
// It reports false for anything that is not a well-formed name, including
// temporary files left behind by interrupted writes. The timestamp may be
// negative, so the fields around it are taken from the ends of the name.
func ParseBase(base string) (Name, bool) {
	idField, rest, ok := strings.Cut(base, "-")
	if !ok {
		return Name{}, false
	}
	rest, dims, ok := cutLast(rest, "-")
	if !ok {
		return Name{}, false
	}
	tsField, sizeField, ok := cutLast(rest, "-")
	if !ok {
		return Name{}, false
	}

	bookID, err := strconv.ParseInt(idField, 10, 64)
	if err != nil || bookID < 0 {
		return Name{}, false
	}
	ts, err := strconv.ParseFloat(tsField, 64)
	if err != nil {
		return Name{}, false
	}
	size, err := strconv.ParseInt(sizeField, 10, 64)
	if err != nil || size < 0 {
		return Name{}, false
	}
	ws, hs, ok := strings.Cut(dims, "x")
	if !ok {
		return Name{}, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return Name{}, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return Name{}, false
	}
	return Name{BookID: bookID, Timestamp: ts, Size: size, Width: w, Height: h}, true
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// InShard reports whether n belongs in the shard directory named shard.
func InShard(shard string, n Name) bool {
	return shard == Shard(n.BookID)
}
