// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"context"
	"time"

	"ngmeta/internal/modkit"
	phttp "ngmeta/internal/platform/net/http"

	metahttp "ngmeta/internal/services/api/meta/http"

	"github.com/redis/go-redis/v9"
)

// Module implements the modkit.Module interface
type Module struct {
	b         modkit.Built
	checks    map[string]any
	startedAt time.Time
}

// New constructs a meta module; readiness pings every configured backend in deps
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta")}, opts...)...)
	checks := map[string]any{}
	if deps.PG != nil {
		checks["pg"] = deps.PG
	}
	if deps.CH != nil {
		checks["ch"] = deps.CH
	}
	if deps.RDS != nil {
		checks["redis"] = redisPinger{deps.RDS}
	}
	return &Module{b: b, checks: checks, startedAt: time.Now()}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r phttp.Router) {
	m.b.Mount(r, func(rr phttp.Router) {
		metahttp.Register(rr, metahttp.Deps{StartedAt: m.startedAt, Checks: m.checks})
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.b.Name }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }
