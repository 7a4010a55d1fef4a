// Package module wires the resolver merge pipeline as a collector batch processor
package module

import (
	"context"

	"ngmeta/internal/adapters/catalog"
	"ngmeta/internal/modkit"
	perr "ngmeta/internal/platform/errors"
	phttp "ngmeta/internal/platform/net/http"
	cdomain "ngmeta/internal/services/collector/domain"
	"ngmeta/internal/services/resolver/domain"
	"ngmeta/internal/services/resolver/extract"
	"ngmeta/internal/services/resolver/service"
)

// Ports defines the resolver module ports
type Ports struct {
	Processor cdomain.BatchProcessor
	Extractor *extract.Extractor
}

// Module implements the resolver module
type Module struct {
	opts  Options
	proc  *service.Processor
	ports Ports
}

// New builds the extractor, merger and pipeline over deps.Blob
// The pipeline goroutine runs until Close
func New(deps modkit.Deps) (*Module, error) {
	if deps.Blob == nil {
		return nil, perr.InvalidArgf("resolver needs document storage (NGMETA_STORAGE_TYPE)")
	}
	opts := FromConfig(deps.Cfg)

	var details domain.DetailFetcher
	if opts.FetchDetails {
		copts, ropts := catalog.OptionsFrom(deps.Cfg)
		r, err := catalog.NewReader(catalog.NewClient(copts), ropts)
		if err != nil {
			return nil, err
		}
		details = r
	}

	x := extract.New(deps.Blob, opts.Namespace, opts.DeleteTypes)
	merger := service.NewMerger(deps.Blob, service.NewMetrics(deps.Registerer()))
	proc := service.NewProcessor(x, service.NewPipeline(merger, opts.Pipeline), details)

	deps.Log.Info().
		Str("namespace", opts.Namespace).
		Str("base", deps.Blob.BaseAddress()).
		Int("max_aggregate", opts.Pipeline.MaxAggregate).
		Bool("details", opts.FetchDetails).
		Msg("resolver ready")
	return &Module{
		opts:  opts,
		proc:  proc,
		ports: Ports{Processor: proc, Extractor: x},
	}, nil
}

// Processor is the batch processor to hand to a collector
func (m *Module) Processor() cdomain.BatchProcessor { return m.proc }

// Close flushes and stops the pipeline
func (m *Module) Close(ctx context.Context) error { return m.proc.Close(ctx) }

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// Name returns the module name
func (m *Module) Name() string { return "resolver" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; documents are served by the api module
func (m *Module) MountRoutes(phttp.Router) {}

var _ modkit.Module = (*Module)(nil)
