// Package api provides the read only HTTP API over derived documents and collector state
package api

import (
	"net/http"

	"ngmeta/internal/modkit"
	phttp "ngmeta/internal/platform/net/http"
	"ngmeta/internal/platform/net/middleware"
	"ngmeta/internal/services/collector/domain"

	cursorhttp "ngmeta/internal/services/api/cursors/http"
	cursormod "ngmeta/internal/services/api/cursors/module"
	docmod "ngmeta/internal/services/api/documents/module"
	metamod "ngmeta/internal/services/api/meta/module"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options are the API options
type Options struct {
	Deps       modkit.Deps
	Settings   Settings
	Namespaces []string
	Cursors    map[string]domain.ReadCursor
	Runs       cursorhttp.RunLister
	Gatherer   prometheus.Gatherer
}

// Mount mounts every API module onto r
//
//	/healthz /readyz /version        meta
//	/metrics                         prometheus
//	/v1/cursors /v1/runs             collector state
//	/v1/{namespace}/{id}             derived documents
func Mount(r phttp.Router, opt Options) {
	r.Use(middleware.Defaults(opt.Settings.Timeout)...)
	r.Use(middleware.CORS(middleware.CORSOptions{AllowedOrigins: opt.Settings.Origins}))

	g := opt.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	phttp.MountProfiler(r, "/debug", opt.Settings.Profiler)

	meta := metamod.New(opt.Deps)
	modkit.Register(meta)
	meta.MountRoutes(r)

	v1 := []modkit.Module{
		cursormod.New(opt.Deps, modkit.WithPorts(cursormod.Ports{Cursors: opt.Cursors, Runs: opt.Runs})),
		docmod.New(opt.Deps, opt.Namespaces),
	}
	r.Route("/v1", func(api phttp.Router) {
		for _, m := range v1 {
			modkit.Register(m)
			m.MountRoutes(api)
		}
	})
}

// Handler builds a router with the API mounted; used by tests and embedding
func Handler(opt Options) http.Handler {
	r := phttp.NewRouter()
	Mount(r, opt)
	return r.Mux()
}
