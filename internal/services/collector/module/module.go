// Package module wires a commit collector from config and shared deps
package module

import (
	"context"
	"time"

	"ngmeta/internal/adapters/catalog"
	"ngmeta/internal/modkit"
	perr "ngmeta/internal/platform/errors"
	phttp "ngmeta/internal/platform/net/http"
	"ngmeta/internal/services/collector/cursor"
	"ngmeta/internal/services/collector/domain"
	"ngmeta/internal/services/collector/guardrails"
	"ngmeta/internal/services/collector/service"
)

// Ports defines the collector module ports
type Ports struct {
	Runner service.Runner
	Front  domain.Cursor
	Back   domain.ReadCursor
	Reader *catalog.Reader
}

// Module implements a collector module
type Module struct {
	name  string
	opts  Options
	ports Ports
}

// New builds the catalog reader, opens both cursors and constructs the collector around proc
// A domain.RunSink passed with modkit.WithPorts records every run
func New(ctx context.Context, deps modkit.Deps, proc domain.BatchProcessor, mopts ...modkit.Option) (*Module, error) {
	b := modkit.Build(mopts...)
	name := b.Name
	if name == "" {
		name = "collector"
	}
	opts := FromConfig(deps.Cfg, name)
	log := deps.Log.With().Str("collector", name).Logger()

	copts, ropts := catalog.OptionsFrom(deps.Cfg)
	client := catalog.NewClient(copts)
	reader, err := catalog.NewReader(client, ropts)
	if err != nil {
		return nil, err
	}

	backends := cursor.Backends{
		Storage:  deps.Blob,
		PG:       deps.PG,
		Redis:    deps.RDS,
		HTTP:     client,
		HTTPPath: opts.HTTPPath,
	}
	front, err := cursor.OpenWritable(ctx, opts.Front, backends)
	if err != nil {
		return nil, perr.WithField(err, "front")
	}
	back, err := cursor.Open(ctx, opts.Back, backends)
	if err != nil {
		return nil, perr.WithField(err, "back")
	}

	svcOpts := []service.Option{service.WithMetrics(service.NewMetrics(deps.Registerer()))}
	if sink, ok := modkit.Lookup[domain.RunSink](b.Ports); ok {
		svcOpts = append(svcOpts, service.WithSink(sink))
	}
	if opts.EnableLeases {
		if deps.PG == nil {
			log.Warn().Msg("leases requested without postgres; running unleased")
		} else {
			if _, err := deps.PG.Exec(ctx, guardrails.LeaseSchema); err != nil {
				return nil, perr.FromPostgres(err, "create lease table")
			}
			svcOpts = append(svcOpts, service.WithLease(guardrails.MakeLease(deps.PG, opts.LeaseTTL)))
		}
	}

	svc := service.New(reader, proc, service.Config{
		Name:             name,
		IndexURI:         opts.IndexURI,
		BatchSize:        opts.BatchSize,
		MaxCommitsPerRun: opts.MaxCommitsPerRun,
		Timeouts: guardrails.Timeouts{
			Run:   opts.RunTimeout,
			Fetch: opts.FetchTimeout,
			Batch: opts.BatchTimeout,
		},
	}, svcOpts...)

	log.Info().Str("index", opts.IndexURI).Str("front", opts.Front).Str("back", opts.Back).Msg("collector ready")
	return &Module{
		name:  name,
		opts:  opts,
		ports: Ports{Runner: svc, Front: front, Back: back, Reader: reader},
	}, nil
}

// Loop drives the collector until ctx ends; see service.Loop
// A zero interval uses the configured one
func (m *Module) Loop(ctx context.Context, interval time.Duration, once bool) (service.Summary, error) {
	if interval <= 0 {
		interval = m.opts.Interval
	}
	return service.Loop(ctx, m.ports.Runner, m.ports.Front, m.ports.Back, interval, once)
}

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; cursors are served by the api module
func (m *Module) MountRoutes(phttp.Router) {}

var _ modkit.Module = (*Module)(nil)
