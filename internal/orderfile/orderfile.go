// Package orderfile persists the LRU order of the index across restarts.
//
// The file holds key fingerprints from least to most recently used:
//
//	magic "TCORD\x01" | uvarint count | count x uint64 LE | xxhash64 LE
//
// The trailing checksum covers everything before it. The file is only a hint;
// a missing or damaged file reads as an empty order.
package orderfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"
	"github.com/spaolacci/murmur3"

	"github.com/meigma/thumbcache/internal/index"
)

// Name is the order file name at the cache root.
const Name = "order"

var magic = []byte("TCORD\x01")

// ErrCorrupt is returned when the order file cannot be decoded.
var ErrCorrupt = errors.New("orderfile: corrupt")

// Fingerprint returns a stable 64-bit hash of k.
func Fingerprint(k index.Key) uint64 {
	buf := make([]byte, 0, len(k.Group)+21)
	buf = append(buf, k.Group...)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, k.BookID, 10)
	return murmur3.Sum64(buf)
}

// Encode serializes fingerprints in the order file format.
func Encode(fps []uint64) []byte {
	buf := make([]byte, 0, len(magic)+binary.MaxVarintLen64+8*len(fps)+8)
	buf = append(buf, magic...)
	buf = binary.AppendUvarint(buf, uint64(len(fps)))
	for _, fp := range fps {
		buf = binary.LittleEndian.AppendUint64(buf, fp)
	}
	return binary.LittleEndian.AppendUint64(buf, xxhash.Sum64(buf))
}

// Decode parses data produced by Encode.
func Decode(data []byte) ([]uint64, error) {
	if len(data) < len(magic)+1+8 || !bytes.HasPrefix(data, magic) {
		return nil, ErrCorrupt
	}
	body, trailer := data[:len(data)-8], data[len(data)-8:]
	if xxhash.Sum64(body) != binary.LittleEndian.Uint64(trailer) {
		return nil, ErrCorrupt
	}
	count, n := binary.Uvarint(body[len(magic):])
	if n <= 0 {
		return nil, ErrCorrupt
	}
	rest := body[len(magic)+n:]
	if len(rest)%8 != 0 || uint64(len(rest)/8) != count {
		return nil, ErrCorrupt
	}
	fps := make([]uint64, count)
	for i := range fps {
		fps[i] = binary.LittleEndian.Uint64(rest[i*8:])
	}
	return fps, nil
}

// Write atomically replaces the order file at path with keys in LRU order.
func Write(path string, keys []index.Key) error {
	fps := make([]uint64, len(keys))
	for i, k := range keys {
		fps[i] = Fingerprint(k)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(Encode(fps))); err != nil {
		return fmt.Errorf("write order file: %w", err)
	}
	return nil
}

// Read returns the rank of every fingerprint stored at path.
// A missing file yields an empty map and no error. Any other failure yields
// an empty map and the error, which callers are expected to log.
func Read(path string) (map[uint64]int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is the cache's own order file
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[uint64]int{}, nil
		}
		return map[uint64]int{}, fmt.Errorf("read order file: %w", err)
	}
	fps, err := Decode(data)
	if err != nil {
		return map[uint64]int{}, err
	}
	ranks := make(map[uint64]int, len(fps))
	for i, fp := range fps {
		if _, seen := ranks[fp]; !seen {
			ranks[fp] = i
		}
	}
	return ranks, nil
}

// Remove deletes the order file at path. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
