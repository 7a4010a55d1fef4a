package blob

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory keeps documents in a map; used by tests and the memory cursor
type Memory struct {
	Addr
	mu    sync.RWMutex
	docs  map[string][]byte
	types map[string]string
	saves int
}

// NewMemory returns an empty store under base
func NewMemory(base string) *Memory {
	addr, err := NewAddr(base, "")
	if err != nil {
		addr = Addr{base: strings.TrimSuffix(base, "/") + "/"}
	}
	return &Memory{Addr: addr, docs: map[string][]byte{}, types: map[string]string{}}
}

// Load returns a copy of the stored document
func (m *Memory) Load(_ context.Context, uri string) ([]byte, bool, error) {
	key, err := m.Key(uri)
	if err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Save stores a copy of content
func (m *Memory) Save(_ context.Context, contentType, uri string, content []byte) error {
	key, err := m.Key(uri)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), content...)
	m.types[key] = contentType
	m.saves++
	return nil
}

// List returns stored keys with prefix in sorted order
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.docs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Saves is the number of successful Save calls
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// ContentType returns the content type a key was saved with
func (m *Memory) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[key]
}
