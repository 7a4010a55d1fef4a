package catalog

import (
	"context"
	"time"

	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/logger"
	"ngmeta/internal/services/collector/domain"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency bounds parallel page fetches
	DefaultConcurrency = 8
	// DefaultIDSelector reads the entity id from a page item
	DefaultIDSelector = "$['nuget:id']"
	// DefaultVersionSelector reads the entity version from a page item
	DefaultVersionSelector = "$['nuget:version']"
)

// Getter fetches a document body; *Client implements it
type Getter interface {
	Get(ctx context.Context, uri string) ([]byte, error)
}

// ReaderOptions configures a Reader
type ReaderOptions struct {
	Concurrency     int
	IDSelector      string
	VersionSelector string
}

// Reader walks a root index and its pages
type Reader struct {
	get         Getter
	concurrency int
	idSel       selector
	versionSel  selector
	log         logger.Logger
}

// NewReader compiles the selectors and applies defaults
func NewReader(get Getter, o ReaderOptions) (*Reader, error) {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.IDSelector == "" {
		o.IDSelector = DefaultIDSelector
	}
	if o.VersionSelector == "" {
		o.VersionSelector = DefaultVersionSelector
	}
	idSel, err := compileSelector(o.IDSelector)
	if err != nil {
		return nil, err
	}
	versionSel, err := compileSelector(o.VersionSelector)
	if err != nil {
		return nil, err
	}
	return &Reader{
		get:         get,
		concurrency: o.Concurrency,
		idSel:       idSel,
		versionSel:  versionSel,
		log:         *logger.Named("catalog"),
	}, nil
}

// FetchIndex returns the page references of the root index
func (r *Reader) FetchIndex(ctx context.Context, indexURI string) ([]PageRef, error) {
	b, err := r.get.Get(ctx, indexURI)
	if err != nil {
		return nil, err
	}
	return decodeIndex(indexURI, b)
}

// FetchEntries returns every entry of every page. Order across pages is not defined
func (r *Reader) FetchEntries(ctx context.Context, indexURI string) ([]domain.CatalogEntry, error) {
	return r.FetchEntriesSince(ctx, indexURI, time.Time{})
}

// FetchEntriesSince skips pages whose declared commit timestamp is not after since
// A page's timestamp is the newest commit it holds, so no entry after since is dropped
func (r *Reader) FetchEntriesSince(ctx context.Context, indexURI string, since time.Time) ([]domain.CatalogEntry, error) {
	pages, err := r.FetchIndex(ctx, indexURI)
	if err != nil {
		return nil, err
	}

	wanted := pages[:0:0]
	for _, p := range pages {
		if since.IsZero() || p.CommitTimestamp.IsZero() || p.CommitTimestamp.After(since) {
			wanted = append(wanted, p)
		}
	}

	results := make([][]domain.CatalogEntry, len(wanted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, p := range wanted {
		g.Go(func() error {
			b, err := r.get.Get(gctx, p.URI)
			if err != nil {
				return err
			}
			entries, err := decodePage(p.URI, b, r.idSel, r.versionSel)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := 0
	for _, rs := range results {
		n += len(rs)
	}
	out := make([]domain.CatalogEntry, 0, n)
	for _, rs := range results {
		out = append(out, rs...)
	}

	r.log.Debug().
		Str("index", indexURI).
		Int("pages_total", len(pages)).
		Int("pages_fetched", len(wanted)).
		Int("entries", len(out)).
		Msg("catalog entries fetched")
	return out, nil
}

// FetchDocuments GETs each uri with the same parallel bound and returns the decoded objects
// The first failure cancels the rest
func (r *Reader) FetchDocuments(ctx context.Context, uris []string) (map[string]map[string]any, error) {
	docs := make([]map[string]any, len(uris))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, uri := range uris {
		g.Go(func() error {
			b, err := r.get.Get(gctx, uri)
			if err != nil {
				return err
			}
			var doc map[string]any
			if err := decodeJSON(b, &doc); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeParse, "document %s", uri)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]map[string]any, len(uris))
	for i, uri := range uris {
		out[uri] = docs[i]
	}
	return out, nil
}

var _ domain.Fetcher = (*Reader)(nil)
