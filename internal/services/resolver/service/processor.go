package service

import (
	"context"
	"maps"

	"ngmeta/internal/platform/logger"
	cdomain "ngmeta/internal/services/collector/domain"
	"ngmeta/internal/services/resolver/domain"
	"ngmeta/internal/services/resolver/extract"
)

// Processor is the batch processor that feeds the merge pipeline
// Every batch ends with a pipeline flush, so a successful ProcessBatch means its documents are saved
type Processor struct {
	x       *extract.Extractor
	pipe    *Pipeline
	details domain.DetailFetcher
}

// NewProcessor returns a processor extracting with x into pipe
// A non nil details fetcher overlays each entry's full document on its payload before extraction
func NewProcessor(x *extract.Extractor, pipe *Pipeline, details domain.DetailFetcher) *Processor {
	if x == nil || pipe == nil {
		panic("resolver: NewProcessor requires an extractor and a pipeline")
	}
	return &Processor{x: x, pipe: pipe, details: details}
}

// ProcessBatch extracts a fragment per entry, adds it to the pipeline and waits for the merges
// A failing batch aborts the pipeline: none of its unsaved fragments reach storage later
func (p *Processor) ProcessBatch(ctx context.Context, items []cdomain.CatalogEntry) (cdomain.BatchResult, error) {
	res, err := p.process(ctx, items)
	if err != nil {
		p.pipe.Abort(err)
		return cdomain.BatchResult{}, err
	}
	return res, nil
}

func (p *Processor) process(ctx context.Context, items []cdomain.CatalogEntry) (cdomain.BatchResult, error) {
	items, err := p.withDetails(ctx, items)
	if err != nil {
		return cdomain.BatchResult{}, err
	}

	before := make(map[string]struct{})
	after := make(map[string]struct{})
	byType := make(map[string]int)
	for _, e := range items {
		uri, f, err := p.x.Extract(e)
		if err != nil {
			return cdomain.BatchResult{}, err
		}
		if err := p.pipe.Add(ctx, uri, f); err != nil {
			return cdomain.BatchResult{}, err
		}
		before[e.EntityID] = struct{}{}
		after[f.Target] = struct{}{}
		byType[e.EntryType]++
	}

	res, err := p.pipe.Flush(ctx)
	if err != nil {
		return cdomain.BatchResult{}, err
	}
	res.Items = len(items)
	res.Before = len(before)
	res.After = len(after)
	if len(byType) > 0 {
		res.ByType = byType
	}
	logger.C(ctx).Debug().Int("items", res.Items).Int("documents", res.After).
		Int("created", res.Created).Int("merged", res.Merged).Msg("resolver batch merged")
	return res, nil
}

// Close flushes and stops the pipeline
func (p *Processor) Close(ctx context.Context) error { return p.pipe.Close(ctx) }

func (p *Processor) withDetails(ctx context.Context, items []cdomain.CatalogEntry) ([]cdomain.CatalogEntry, error) {
	if p.details == nil {
		return items, nil
	}
	uris := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, e := range items {
		if p.x.IsDelete(e) {
			continue
		}
		if _, dup := seen[e.ResourceURI]; !dup {
			seen[e.ResourceURI] = struct{}{}
			uris = append(uris, e.ResourceURI)
		}
	}
	if len(uris) == 0 {
		return items, nil
	}
	docs, err := p.details.FetchDocuments(ctx, uris)
	if err != nil {
		return nil, err
	}

	out := make([]cdomain.CatalogEntry, len(items))
	for i, e := range items {
		if doc, ok := docs[e.ResourceURI]; ok && len(doc) > 0 {
			payload := make(map[string]any, len(e.Payload)+len(doc))
			maps.Copy(payload, e.Payload)
			maps.Copy(payload, doc)
			for _, k := range []string{"commitId", "commitTimeStamp"} {
				delete(payload, k)
			}
			e.Payload = payload
		}
		out[i] = e
	}
	return out, nil
}

var _ cdomain.BatchProcessor = (*Processor)(nil)
