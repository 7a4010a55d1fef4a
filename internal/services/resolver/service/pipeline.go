// Package service implements the resolver graph merge pipeline
package service

import (
	"context"
	"sort"
	"sync"

	"ngmeta/internal/core/graph"
	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/logger"
	cdomain "ngmeta/internal/services/collector/domain"
	"ngmeta/internal/services/resolver/domain"

	"golang.org/x/sync/errgroup"
)

// Defaults for Config fields left at zero
const (
	DefaultMaxAggregate = 1000
	DefaultQueueDepth   = 10
	DefaultMergeWorkers = 8
)

// Config bounds the pipeline
type Config struct {
	// MaxAggregate is the number of fragments collected before the aggregate is queued
	MaxAggregate int
	// MaxAggregateTriples also queues the aggregate once its fragments carry that many statements; 0 = off
	MaxAggregateTriples int
	// QueueDepth is the number of aggregates waiting for the dispatcher before Add blocks
	QueueDepth int
	// MergeWorkers bounds concurrent document merges within one aggregate
	MergeWorkers int
}

func (c Config) withDefaults() Config {
	if c.MaxAggregate <= 0 {
		c.MaxAggregate = DefaultMaxAggregate
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.MergeWorkers <= 0 {
		c.MergeWorkers = DefaultMergeWorkers
	}
	return c
}

type pending struct {
	uri  string
	frag graph.Fragment
}

type job struct {
	ctx     context.Context
	agg     map[string]*pending
	barrier chan struct{}
}

// Pipeline aggregates fragments by document and merges them in the background
//
// Add and Flush belong to a single producer goroutine. One dispatcher drains the queue
// an aggregate at a time, so no two merges of the same document are ever in flight.
// After a failed merge the pipeline is failed: queued work is skipped and every
// later Add or Flush returns the error.
type Pipeline struct {
	cfg    Config
	merger *Merger

	agg       map[string]*pending
	fragments int
	triples   int
	closed    bool

	queue chan job
	done  chan struct{}

	mu      sync.Mutex
	err     error
	results cdomain.BatchResult
}

// NewPipeline starts the dispatcher; Close must be called to stop it
func NewPipeline(merger *Merger, cfg Config) *Pipeline {
	if merger == nil {
		panic("resolver: NewPipeline requires a non nil Merger")
	}
	cfg = cfg.withDefaults()
	p := &Pipeline{
		cfg:    cfg,
		merger: merger,
		agg:    make(map[string]*pending),
		queue:  make(chan job, cfg.QueueDepth),
		done:   make(chan struct{}),
	}
	go p.dispatch()
	return p
}

// Add folds f into the aggregate entry for uri, queueing the aggregate once a bound is reached
// It blocks while the queue is full
func (p *Pipeline) Add(ctx context.Context, uri string, f graph.Fragment) error {
	if p.closed {
		return perr.Invariantf("resolver pipeline is closed")
	}
	if err := p.Err(); err != nil {
		return err
	}
	if cur, ok := p.agg[uri]; ok {
		cur.frag = cur.frag.Then(f)
	} else {
		p.agg[uri] = &pending{uri: uri, frag: f}
	}
	p.fragments++
	p.triples += f.Size()

	if p.fragments >= p.cfg.MaxAggregate ||
		(p.cfg.MaxAggregateTriples > 0 && p.triples >= p.cfg.MaxAggregateTriples) {
		return p.enqueue(ctx)
	}
	return nil
}

// Flush queues the partial aggregate and waits until everything queued so far is merged
// It returns the merge results since the previous Flush
func (p *Pipeline) Flush(ctx context.Context) (cdomain.BatchResult, error) {
	if p.closed {
		return cdomain.BatchResult{}, perr.Invariantf("resolver pipeline is closed")
	}
	if err := p.enqueue(ctx); err != nil {
		return cdomain.BatchResult{}, err
	}
	barrier := make(chan struct{})
	if err := p.send(ctx, job{barrier: barrier}); err != nil {
		return cdomain.BatchResult{}, err
	}
	select {
	case <-barrier:
	case <-ctx.Done():
		return cdomain.BatchResult{}, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	res := p.results
	p.results = cdomain.BatchResult{}
	return res, p.err
}

// Close flushes, stops the dispatcher and waits for it
func (p *Pipeline) Close(ctx context.Context) error {
	if p.closed {
		return nil
	}
	_, err := p.Flush(ctx)
	p.closed = true
	close(p.queue)
	select {
	case <-p.done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Abort drops the open aggregate and fails the pipeline with err
// Aggregates still queued are skipped; documents already merged stay saved
func (p *Pipeline) Abort(err error) {
	if err == nil {
		return
	}
	p.agg = make(map[string]*pending)
	p.fragments, p.triples = 0, 0
	p.fail(err)
}

// Err is the error that failed the pipeline, if any
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Pending is the number of fragments in the open aggregate
func (p *Pipeline) Pending() int { return p.fragments }

func (p *Pipeline) enqueue(ctx context.Context) error {
	if len(p.agg) == 0 {
		return nil
	}
	j := job{ctx: ctx, agg: p.agg}
	p.agg = make(map[string]*pending)
	p.fragments, p.triples = 0, 0
	return p.send(ctx, j)
}

func (p *Pipeline) send(ctx context.Context, j job) error {
	select {
	case p.queue <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *Pipeline) dispatch() {
	defer close(p.done)
	for j := range p.queue {
		if j.barrier != nil {
			close(j.barrier)
			continue
		}
		if p.Err() != nil {
			continue
		}
		if err := p.mergeAll(j.ctx, j.agg); err != nil {
			logger.C(j.ctx).Error().Err(err).Int("documents", len(j.agg)).Msg("aggregate merge failed")
			p.fail(err)
		}
	}
}

// mergeAll merges every document of one aggregate with bounded concurrency
func (p *Pipeline) mergeAll(ctx context.Context, agg map[string]*pending) error {
	uris := make([]string, 0, len(agg))
	for uri := range agg {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	results := make([]domain.MergeResult, len(uris))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MergeWorkers)
	for i, uri := range uris {
		g.Go(func() error {
			r, err := p.merger.Merge(gctx, uri, agg[uri].frag)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	err := g.Wait()

	var sum cdomain.BatchResult
	for _, r := range results {
		if r.URI == "" {
			continue
		}
		sum.Targets++
		sum.Triples += r.Triples
		if r.Created {
			sum.Created++
		} else {
			sum.Merged++
		}
		if r.LoadError {
			sum.LoadErrors++
		}
	}
	p.mu.Lock()
	p.results = p.results.Add(sum)
	p.mu.Unlock()

	logger.C(ctx).Debug().Int("documents", len(uris)).Int("created", sum.Created).Int("merged", sum.Merged).Msg("aggregate merged")
	return err
}
