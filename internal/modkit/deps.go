// Package modkit provides module wiring and core deps
package modkit

import (
	"ngmeta/internal/adapters/blob"
	"ngmeta/internal/modkit/repokit"
	"ngmeta/internal/platform/config"
	"ngmeta/internal/platform/logger"
	"ngmeta/internal/platform/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log  logger.Logger
	Cfg  config.Conf
	PG   repokit.TxRunner
	CH   store.Clickhouse
	RDS  *redis.Client
	Blob blob.Storage
	Reg  prometheus.Registerer
}

// FromStore copies the enabled backends of s into deps
// nil backends stay nil so modules can tell what is configured
func FromStore(s *store.Store, cfg config.Conf) Deps {
	d := Deps{Cfg: cfg, Log: *logger.Get()}
	if s == nil {
		return d
	}
	d.PG, d.CH, d.RDS = s.PG, s.CH, s.RDS
	return d
}

// Registerer returns Reg or the default prometheus registerer
func (d Deps) Registerer() prometheus.Registerer {
	if d.Reg != nil {
		return d.Reg
	}
	return prometheus.DefaultRegisterer
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional stores
func (d Deps) ZeroOK() bool { return true }
