/*
Package presence tracks which users hold a live relay connection.

A Table maps a user id to exactly one connection handle. A newer connection for the same
user replaces the older mapping; removal only succeeds for the handle currently stored,
so a late disconnect from a replaced connection cannot erase its successor.
*/
package presence

import (
	"maps"
	"slices"
	"sync"
)

// Table is a concurrency-safe user id → handle map. H is usually a connection pointer.
type Table[H comparable] struct {
	// mu makes every operation atomic with respect to the others.
	mu sync.RWMutex

	entries map[string]H
}

// NewTable returns an empty Table.
func NewTable[H comparable]() *Table[H] {
	return &Table[H]{entries: make(map[string]H)}
}

// Register stores h for id. When another handle was stored it is returned with replaced=true.
func (t *Table[H]) Register(id string, h H) (previous H, replaced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous, replaced = t.entries[id]
	t.entries[id] = h
	return previous, replaced && previous != h
}

// Unregister removes id only if its stored handle equals h. It reports whether an entry was removed.
func (t *Table[H]) Unregister(id string, h H) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.entries[id]
	if !ok || current != h {
		return false
	}

	delete(t.entries, id)
	return true
}

// Lookup returns the handle stored for id.
func (t *Table[H]) Lookup(id string) (H, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h, ok := t.entries[id]
	return h, ok
}

// Snapshot returns the ids currently present, sorted ascending. It is never nil.
func (t *Table[H]) Snapshot() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := slices.AppendSeq(make([]string, 0, len(t.entries)), maps.Keys(t.entries))
	slices.Sort(ids)
	return ids
}

// Len returns the number of present ids.
func (t *Table[H]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}
