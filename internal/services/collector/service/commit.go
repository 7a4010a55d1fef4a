// Package service implements the commit and batch collectors
package service

import (
	"context"
	"time"

	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/logger"
	"ngmeta/internal/services/collector/domain"
	"ngmeta/internal/services/collector/guardrails"

	"github.com/google/uuid"
)

// Config holds configuration options for a commit collector
type Config struct {
	// Name labels logs, metrics, cursor metadata and stats rows (e.g. catalog2resolver)
	Name string

	// IndexURI is the feed root index
	IndexURI string

	// BatchSize is N, the item bound of one batch; <=0 -> DefaultBatchSize
	BatchSize int

	// MaxCommitsPerRun stops a run after that many commit groups; 0 = unlimited
	MaxCommitsPerRun int

	// Timeouts applied via guardrails
	Timeouts guardrails.Timeouts
}

// CommitCollector walks the feed between the front and back cursors commit by commit
type CommitCollector struct {
	fetch   domain.Fetcher
	proc    domain.BatchProcessor
	cfg     Config
	sink    domain.RunSink
	metrics *Metrics
	lease   guardrails.LeaseFunc

	newRunID func() string
	now      func() time.Time
}

// Option mutates a CommitCollector during New
type Option func(*CommitCollector)

// WithSink records every finished run
func WithSink(s domain.RunSink) Option { return func(c *CommitCollector) { c.sink = s } }

// WithMetrics exports collector series
func WithMetrics(m *Metrics) Option { return func(c *CommitCollector) { c.metrics = m } }

// WithLease runs each pass under a collector-wide lease
func WithLease(l guardrails.LeaseFunc) Option { return func(c *CommitCollector) { c.lease = l } }

// WithClock replaces time.Now (tests)
func WithClock(now func() time.Time) Option { return func(c *CommitCollector) { c.now = now } }

// New constructs a commit collector
func New(fetch domain.Fetcher, proc domain.BatchProcessor, cfg Config, opts ...Option) *CommitCollector {
	if fetch == nil {
		panic("collector: New requires a non nil Fetcher")
	}
	if proc == nil {
		panic("collector: New requires a non nil BatchProcessor")
	}
	if cfg.Name == "" {
		cfg.Name = "collector"
	}
	c := &CommitCollector{
		fetch:    fetch,
		proc:     proc,
		cfg:      cfg,
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name is the collector name
func (c *CommitCollector) Name() string { return c.cfg.Name }

// Run performs one pass: fetch everything after front up to back, process it in commit order
// and advance front as batches complete
// A failed run leaves front at the last durable position
func (c *CommitCollector) Run(ctx context.Context, front domain.Cursor, back domain.ReadCursor) (domain.Result, error) {
	res := domain.Result{
		RunID:     c.newRunID(),
		Collector: c.cfg.Name,
		StartedAt: c.now().UTC(),
	}
	ctx = logger.WithRun(ctx, res.RunID, c.cfg.Name)

	var err error
	if c.lease != nil {
		err = c.lease(ctx, c.cfg.Name, res.RunID, func(ctx context.Context) error {
			res, err = c.run(ctx, res, front, back)
			return err
		})
		if guardrails.IsLeaseHeld(err) {
			logger.C(ctx).Info().Msg("collector lease held elsewhere; skipping run")
			return res, err
		}
	} else {
		res, err = c.run(ctx, res, front, back)
	}

	res.Elapsed = c.now().Sub(res.StartedAt)
	c.finish(ctx, res, err)
	return res, err
}

func (c *CommitCollector) run(ctx context.Context, res domain.Result, front domain.Cursor, back domain.ReadCursor) (domain.Result, error) {
	runCtx, cancel := guardrails.WithRun(ctx, c.cfg.Timeouts)
	defer cancel()
	log := logger.C(ctx)

	fp, err := front.Load(runCtx)
	if err != nil {
		return res, perr.WithOp(err, "load front")
	}
	bp, err := back.Load(runCtx)
	if err != nil {
		return res, perr.WithOp(err, "load back")
	}
	res.Front, res.Advanced, res.Back = fp.Value, fp.Value, bp.Value
	if bp.Value.Before(fp.Value) {
		return res, perr.Invariantf("back cursor %s is behind front cursor %s",
			bp.Value.Format(time.RFC3339Nano), fp.Value.Format(time.RFC3339Nano))
	}
	if !bp.Value.After(fp.Value) {
		log.Debug().Time("front", fp.Value).Msg("front has reached back; nothing to do")
		return res, nil
	}

	fetchCtx, fetchCancel := guardrails.ForFetch(runCtx, c.cfg.Timeouts)
	entries, err := c.fetch.FetchEntriesSince(fetchCtx, c.cfg.IndexURI, fp.Value)
	fetchCancel()
	if err != nil {
		return res, err
	}

	all, err := GroupCommits(entries, fp.Value, bp.Value)
	if err != nil {
		return res, err
	}
	groups := limitGroups(all, c.cfg.MaxCommitsPerRun)
	log.Info().Int("entries", len(entries)).Int("commits", len(all)).Int("selected", len(groups)).
		Time("front", fp.Value).Time("back", bp.Value).Msg("collector pass")

	bc := NewBatchCollector(c.cfg.BatchSize, c.proc).
		WithTimeouts(c.cfg.Timeouts).
		WithMetrics(c.cfg.Name, c.metrics)

	done := 0
	commit := func(flushed []domain.CommitGroup) error {
		if len(flushed) == 0 {
			return nil
		}
		for _, g := range flushed {
			res.Items += g.Len()
		}
		done += len(flushed)
		res.Commits = done
		res.MadeProgress = true
		return c.advance(runCtx, front, &res, groups, done)
	}

	for _, g := range groups {
		flushed, err := bc.Add(runCtx, g)
		if err != nil {
			res.Batches, res.Processed = bc.Batches(), bc.Totals()
			return res, err
		}
		if err := commit(flushed); err != nil {
			res.Batches, res.Processed = bc.Batches(), bc.Totals()
			return res, err
		}
	}
	flushed, err := bc.Complete(runCtx)
	res.Batches, res.Processed = bc.Batches(), bc.Totals()
	if err != nil {
		return res, err
	}
	if err := commit(flushed); err != nil {
		return res, err
	}
	return res, nil
}

// advance saves the newest position no unprocessed group shares
func (c *CommitCollector) advance(ctx context.Context, front domain.Cursor, res *domain.Result, groups []domain.CommitGroup, done int) error {
	i := safeIndex(groups, done)
	if i < 0 {
		return nil
	}
	g := groups[i]
	if !g.Timestamp.After(res.Advanced) {
		return nil
	}
	p := domain.Position{
		Value: g.Timestamp,
		Metadata: map[string]any{
			"commitId":  g.CommitID,
			"runId":     res.RunID,
			"collector": c.cfg.Name,
		},
	}
	if err := front.Save(ctx, p); err != nil {
		if perr.CodeOf(err) == perr.ErrorCodeUnknown {
			err = perr.Wrap(err, perr.ErrorCodeStorage, "save front cursor")
		}
		return err
	}
	res.Advanced = g.Timestamp
	c.metrics.cursor(c.cfg.Name, g.Timestamp)
	logger.C(ctx).Debug().Time("front", g.Timestamp).Str("commit_id", g.CommitID).Msg("front advanced")
	return nil
}

// finish logs the outcome and records it in the sink; sink failures are not fatal
func (c *CommitCollector) finish(ctx context.Context, res domain.Result, runErr error) {
	status := domain.StatusOK
	if runErr != nil {
		status = domain.StatusFailed
	}
	c.metrics.run(c.cfg.Name, string(status))

	log := logger.C(ctx)
	evt := log.Info()
	if runErr != nil {
		evt = log.Error().Err(runErr).Str("code", perr.CodeOf(runErr).String())
	}
	evt.Bool("progress", res.MadeProgress).
		Int("commits", res.Commits).
		Int("items", res.Items).
		Int("batches", res.Batches).
		Time("front", res.Front).
		Time("advanced", res.Advanced).
		Dur("elapsed", res.Elapsed).
		Msg("collector run finished")

	if c.sink == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.sink.Record(sctx, res, status, runErr); err != nil {
		log.Warn().Err(err).Msg("record run stats failed")
	}
}
