// Package module mounts the cursor and run history endpoints
package module

import (
	"ngmeta/internal/modkit"
	phttp "ngmeta/internal/platform/net/http"
	"ngmeta/internal/services/collector/domain"

	cursorhttp "ngmeta/internal/services/api/cursors/http"
)

// Ports is what the module needs from the collector side
type Ports struct {
	Cursors map[string]domain.ReadCursor
	Runs    cursorhttp.RunLister
}

// Module implements the modkit.Module interface
type Module struct {
	b     modkit.Built
	ports Ports
}

// New builds the module; cursors and the run lister arrive with modkit.WithPorts(Ports{...})
func New(_ modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("cursors")}, opts...)...)
	p, _ := modkit.Lookup[Ports](b.Ports)
	return &Module{b: b, ports: p}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r phttp.Router) {
	m.b.Mount(r, func(rr phttp.Router) {
		cursorhttp.Register(rr, cursorhttp.Deps{Cursors: m.ports.Cursors, Runs: m.ports.Runs})
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.b.Name }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return m.ports }
