// Package keydir remembers which person key a (first, last, city) search
// resolved to, so later searches for the same person in the same city hit
// the person_key tier first.
package keydir

import (
	"context"
	"strings"
	"sync"

	"github.com/jask/contribsearch/internal/names"
)

// entryKey is the canonical directory key for a name in a city.
func entryKey(first, last, city string) string {
	return strings.Join([]string{names.Fold(first), names.Fold(last), names.Fold(city)}, "|")
}

// Memory is an in-process directory. Entries never expire.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]names.PersonKey
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]names.PersonKey)}
}

func (m *Memory) Lookup(_ context.Context, first, last, city string) (names.PersonKey, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.entries[entryKey(first, last, city)]
	return k, ok, nil
}

// Remember stores key, replacing any earlier key for the same entry.
func (m *Memory) Remember(_ context.Context, first, last, city string, key names.PersonKey) error {
	if key == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey(first, last, city)] = key
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
