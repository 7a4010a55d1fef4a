// Package stats counts catalog items and records collector runs
package stats

import (
	"context"
	"maps"
	"sync"

	"ngmeta/internal/core/identity"
	"ngmeta/internal/services/collector/domain"
)

// Totals is a snapshot of everything a Counter has seen
type Totals struct {
	Items    int            `json:"items"`
	Distinct int            `json:"distinct_ids"`
	ByType   map[string]int `json:"by_type"`
}

// Counter is a batch processor that only counts: items, items per entry type and distinct ids
type Counter struct {
	mu     sync.Mutex
	items  int
	byType map[string]int
	ids    map[string]struct{}
}

// NewCounter returns an empty counter
func NewCounter() *Counter {
	return &Counter{byType: map[string]int{}, ids: map[string]struct{}{}}
}

// ProcessBatch counts items; Before is the distinct ids of the batch, After those never seen before
func (c *Counter) ProcessBatch(_ context.Context, items []domain.CatalogEntry) (domain.BatchResult, error) {
	batch := make(map[string]struct{}, len(items))
	byType := make(map[string]int)
	for _, e := range items {
		batch[identity.Normalize(e.EntityID)] = struct{}{}
		byType[e.EntryType]++
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := 0
	for id := range batch {
		if _, ok := c.ids[id]; !ok {
			c.ids[id] = struct{}{}
			fresh++
		}
	}
	c.items += len(items)
	for k, v := range byType {
		c.byType[k] += v
	}

	res := domain.BatchResult{Items: len(items), Before: len(batch), After: fresh}
	if len(byType) > 0 {
		res.ByType = byType
	}
	return res, nil
}

// Totals returns a copy of the running totals
func (c *Counter) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Totals{Items: c.items, Distinct: len(c.ids), ByType: maps.Clone(c.byType)}
}

var _ domain.BatchProcessor = (*Counter)(nil)
