package service

import (
	"context"
	"time"

	"ngmeta/internal/adapters/blob"
	"ngmeta/internal/core/graph"
	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/logger"
	"ngmeta/internal/services/resolver/domain"
)

// Merger folds fragments into stored documents
// Loads run concurrently; saves hold a single permit
type Merger struct {
	store   blob.Storage
	permit  chan struct{}
	metrics *Metrics
	now     func() time.Time
}

// NewMerger returns a merger saving into store
func NewMerger(store blob.Storage, m *Metrics) *Merger {
	if store == nil {
		panic("resolver: NewMerger requires a non nil Storage")
	}
	return &Merger{store: store, permit: make(chan struct{}, 1), metrics: m, now: time.Now}
}

// Merge loads the document at uri, applies f and saves the canonical result
//
// A missing document is an empty graph. A load failure is logged and treated the same way;
// a stored document that does not parse fails the merge, as does a failed save.
// The document is saved even when the merge changed nothing.
func (m *Merger) Merge(ctx context.Context, uri string, f graph.Fragment) (domain.MergeResult, error) {
	start := m.now()
	res := domain.MergeResult{Target: f.Target, URI: uri}

	var existing graph.Graph
	b, ok, err := m.store.Load(ctx, uri)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			m.metrics.failed()
			return res, ctx.Err()
		}
		logger.C(ctx).Warn().Err(err).Str("uri", uri).Msg("load failed; treating document as absent")
		res.LoadError = true
		res.Created = true
	case !ok:
		res.Created = true
	default:
		existing, err = graph.Decode(b)
		if err != nil {
			m.metrics.failed()
			return res, perr.WithOp(err, "merge "+uri)
		}
	}

	merged := f.Apply(existing)
	out, err := graph.Encode(uri, merged)
	if err != nil {
		m.metrics.failed()
		return res, err
	}
	if err := m.save(ctx, uri, out); err != nil {
		m.metrics.failed()
		return res, err
	}

	res.Triples = merged.Len()
	m.metrics.merged(res.Created, m.now().Sub(start))
	return res, nil
}

func (m *Merger) save(ctx context.Context, uri string, b []byte) error {
	select {
	case m.permit <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.permit }()

	if err := m.store.Save(ctx, graph.ContentType, uri, b); err != nil {
		if perr.CodeOf(err) == perr.ErrorCodeUnknown {
			err = perr.Wrapf(err, perr.ErrorCodeStorage, "save %s", uri)
		}
		return err
	}
	return nil
}
