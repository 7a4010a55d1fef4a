package domain

import (
	"context"
	"time"
)

// ReadCursor exposes a position this pipeline may read but never writes (the back bound)
type ReadCursor interface {
	Load(ctx context.Context) (Position, error)
}

// Cursor is a durable, atomically updated position (the front)
type Cursor interface {
	ReadCursor
	Save(ctx context.Context, p Position) error
}

// Fetcher reads catalog entries from a feed root index
// Pages whose declared commit timestamp is not after since are skipped
type Fetcher interface {
	FetchEntriesSince(ctx context.Context, indexURI string, since time.Time) ([]CatalogEntry, error)
}

// BatchProcessor consumes one flushed batch; an error fails the batch and stops the run
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, items []CatalogEntry) (BatchResult, error)
}

// BatchProcessorFunc adapts a function to BatchProcessor
type BatchProcessorFunc func(ctx context.Context, items []CatalogEntry) (BatchResult, error)

// ProcessBatch calls f
func (f BatchProcessorFunc) ProcessBatch(ctx context.Context, items []CatalogEntry) (BatchResult, error) {
	return f(ctx, items)
}

// RunSink records finished runs (stats store, logs)
type RunSink interface {
	Record(ctx context.Context, r Result, status Status, runErr error) error
}
