package cursor

import (
	"context"
	"sync"

	"ngmeta/internal/services/collector/domain"
)

// Memory is a process-local read-write cursor
type Memory struct {
	mu    sync.Mutex
	pos   domain.Position
	saves int
}

// NewMemory returns a cursor positioned at p
func NewMemory(p domain.Position) *Memory { return &Memory{pos: p} }

// Load returns the current position
func (m *Memory) Load(context.Context) (domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos, nil
}

// Save replaces the position
func (m *Memory) Save(_ context.Context, p domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = p
	m.saves++
	return nil
}

// Saves counts successful saves
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Fixed is a read-only cursor that always reports the same position
type Fixed struct{ pos domain.Position }

// Load returns the fixed position
func (f Fixed) Load(context.Context) (domain.Position, error) { return f.pos, nil }

// Min is the read-only epoch bound
func Min() Fixed { return Fixed{pos: domain.Min()} }

// Max is the read-only unbounded bound
func Max() Fixed { return Fixed{pos: domain.Max()} }
