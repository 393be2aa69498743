// Package index provides the in-memory LRU index of cached thumbnails.
package index

import (
	"container/list"
	"iter"
)

// Dimensions is a declared thumbnail pixel size.
type Dimensions struct {
	Width  int
	Height int
}

// Key identifies a cached thumbnail.
type Key struct {
	Group  string
	BookID int64
}

// Entry describes one cached thumbnail file. Entries are never mutated.
type Entry struct {
	Path      string
	Size      int64
	Timestamp float64
	Dims      Dimensions
}

type element struct {
	key   Key
	entry Entry
}

// Index is an insertion-ordered mapping from Key to Entry.
//
// The front of the order is the least recently used entry, the back the most
// recently used. Index tracks the sum of entry sizes. It is not safe for
// concurrent use; the owning cache serializes access.
type Index struct {
	items map[Key]*list.Element
	order *list.List
	total int64
}

// New returns an empty index.
func New() *Index {
	return &Index{
		items: make(map[Key]*list.Element),
		order: list.New(),
	}
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.items)
}

// TotalSize returns the sum of all entry sizes.
func (ix *Index) TotalSize() int64 {
	return ix.total
}

// Get returns the entry for k without changing its position.
func (ix *Index) Get(k Key) (Entry, bool) {
	el, ok := ix.items[k]
	if !ok {
		return Entry{}, false
	}
	return el.Value.(*element).entry, true
}

// Touch moves the entry for k to the most recently used position.
func (ix *Index) Touch(k Key) (Entry, bool) {
	el, ok := ix.items[k]
	if !ok {
		return Entry{}, false
	}
	ix.order.MoveToBack(el)
	return el.Value.(*element).entry, true
}

// Push appends e under k at the most recently used position, replacing any
// existing entry for k.
func (ix *Index) Push(k Key, e Entry) {
	if el, ok := ix.items[k]; ok {
		ix.removeElement(el)
	}
	ix.items[k] = ix.order.PushBack(&element{key: k, entry: e})
	ix.total += e.Size
}

// Remove drops the entry for k and returns it.
func (ix *Index) Remove(k Key) (Entry, bool) {
	el, ok := ix.items[k]
	if !ok {
		return Entry{}, false
	}
	return ix.removeElement(el).entry, true
}

// PopOldest removes and returns the least recently used entry.
func (ix *Index) PopOldest() (Key, Entry, bool) {
	front := ix.order.Front()
	if front == nil {
		return Key{}, Entry{}, false
	}
	el := ix.removeElement(front)
	return el.key, el.entry, true
}

// RemoveFunc removes every entry for which drop returns true and returns the
// removed entries in LRU order.
func (ix *Index) RemoveFunc(drop func(Key, Entry) bool) []Entry {
	var removed []Entry
	for el := ix.order.Front(); el != nil; {
		next := el.Next()
		v := el.Value.(*element)
		if drop(v.key, v.entry) {
			ix.removeElement(el)
			removed = append(removed, v.entry)
		}
		el = next
	}
	return removed
}

// Clear removes every entry and returns them in LRU order.
func (ix *Index) Clear() []Entry {
	return ix.RemoveFunc(func(Key, Entry) bool { return true })
}

// All returns an iterator over entries from least to most recently used.
// The index must not be modified during iteration.
func (ix *Index) All() iter.Seq2[Key, Entry] {
	return func(yield func(Key, Entry) bool) {
		for el := ix.order.Front(); el != nil; el = el.Next() {
			v := el.Value.(*element)
			if !yield(v.key, v.entry) {
				return
			}
		}
	}
}

// Keys returns all keys from least to most recently used.
func (ix *Index) Keys() []Key {
	keys := make([]Key, 0, len(ix.items))
	for k := range ix.All() {
		keys = append(keys, k)
	}
	return keys
}

func (ix *Index) removeElement(el *list.Element) *element {
	v := el.Value.(*element)
	delete(ix.items, v.key)
	ix.order.Remove(el)
	ix.total -= v.entry.Size
	return v
}
