package service

import (
	"context"

	"ngmeta/internal/platform/logger"
	"ngmeta/internal/services/collector/domain"
	"ngmeta/internal/services/collector/guardrails"
)

// DefaultBatchSize is N when none is configured
const DefaultBatchSize = 1000

// BatchCollector packs whole commit groups into batches of at most size items
// A group is never split; one larger than size is processed alone
// Not safe for concurrent use
type BatchCollector struct {
	size     int
	proc     domain.BatchProcessor
	timeouts guardrails.Timeouts
	name     string
	metrics  *Metrics

	open    []domain.CommitGroup
	items   int
	totals  domain.BatchResult
	batches int
	err     error
}

// NewBatchCollector returns a collector flushing into proc
func NewBatchCollector(size int, proc domain.BatchProcessor) *BatchCollector {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchCollector{size: size, proc: proc}
}

// WithTimeouts bounds each flush by t.Batch
func (b *BatchCollector) WithTimeouts(t guardrails.Timeouts) *BatchCollector {
	b.timeouts = t
	return b
}

// WithMetrics labels batch counters with the collector name
func (b *BatchCollector) WithMetrics(name string, m *Metrics) *BatchCollector {
	b.name, b.metrics = name, m
	return b
}

// Add appends g to the open batch, flushing the open batch first when g would overflow it
// The returned groups are the ones durably processed by that flush
func (b *BatchCollector) Add(ctx context.Context, g domain.CommitGroup) ([]domain.CommitGroup, error) {
	if b.err != nil {
		return nil, b.err
	}
	var flushed []domain.CommitGroup
	if b.items > 0 && b.items+g.Len() > b.size {
		f, err := b.flush(ctx)
		if err != nil {
			return nil, err
		}
		flushed = f
	}
	b.open = append(b.open, g)
	b.items += g.Len()
	return flushed, nil
}

// Complete flushes the open batch, if any
func (b *BatchCollector) Complete(ctx context.Context) ([]domain.CommitGroup, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.open) == 0 {
		return nil, nil
	}
	return b.flush(ctx)
}

// Totals is the sum of every successful flush
func (b *BatchCollector) Totals() domain.BatchResult { return b.totals }

// Batches counts successful flushes
func (b *BatchCollector) Batches() int { return b.batches }

// Pending is the number of items in the open batch
func (b *BatchCollector) Pending() int { return b.items }

func (b *BatchCollector) flush(ctx context.Context) ([]domain.CommitGroup, error) {
	items := make([]domain.CatalogEntry, 0, b.items)
	for _, g := range b.open {
		items = append(items, g.Items...)
	}

	bctx, cancel := guardrails.ForBatch(ctx, b.timeouts)
	res, err := b.proc.ProcessBatch(bctx, items)
	cancel()
	b.metrics.batch(b.name, len(b.open), err)
	if err != nil {
		// a failed batch is fatal; nothing after it may be processed
		b.err = err
		logger.C(ctx).Error().Err(err).Int("items", len(items)).Int("commits", len(b.open)).Msg("batch failed")
		return nil, err
	}

	flushed := b.open
	b.open = nil
	b.items = 0
	b.totals = b.totals.Add(res)
	b.batches++
	logger.C(ctx).Debug().Int("items", len(items)).Int("commits", len(flushed)).Int("batch", b.batches).Msg("batch flushed")
	return flushed, nil
}
