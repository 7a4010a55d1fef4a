// Package module mounts the derived document endpoints
package module

import (
	"ngmeta/internal/modkit"
	phttp "ngmeta/internal/platform/net/http"

	dochttp "ngmeta/internal/services/api/documents/http"
)

// Module implements the modkit.Module interface
type Module struct {
	b    modkit.Built
	deps dochttp.Deps
}

// New serves documents of the given namespaces from deps.Blob
func New(deps modkit.Deps, namespaces []string, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("documents")}, opts...)...)
	return &Module{b: b, deps: dochttp.Deps{Storage: deps.Blob, Namespaces: namespaces}}
}

// MountRoutes implements the modkit.Module interface; nothing is mounted without storage
func (m *Module) MountRoutes(r phttp.Router) {
	if m.deps.Storage == nil {
		return
	}
	m.b.Mount(r, func(rr phttp.Router) { dochttp.Register(rr, m.deps) })
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.b.Name }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
