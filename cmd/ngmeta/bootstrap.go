package main

import (
	"context"
	"errors"
	"io"

	"ngmeta/internal/adapters/blob"
	"ngmeta/internal/modkit"
	"ngmeta/internal/modkit/repokit"
	"ngmeta/internal/platform/config"
	"ngmeta/internal/platform/logger"
	"ngmeta/internal/platform/store"
	"ngmeta/internal/services/collector/domain"
	"ngmeta/internal/services/stats"
)

// env is the process wiring shared by every subcommand
type env struct {
	cfg     config.Conf
	log     *logger.Logger
	st      *store.Store
	blob    blob.Storage
	closers []io.Closer
}

// bootstrap opens and guards the configured stores; document storage only when withBlob is set
// role tags clickhouse connections with the subcommand
func bootstrap(ctx context.Context, role string, withBlob bool) (*env, error) {
	e := &env{cfg: config.New(), log: logger.Get()}

	scfg := store.ConfigFromEnv("ngmeta")
	scfg.CH.Role = role
	st, err := store.Open(ctx, scfg, store.WithLogger(*e.log))
	if err != nil {
		return nil, err
	}
	e.st = st
	if err := repokit.Guard(ctx, st); err != nil {
		e.Close(ctx)
		return nil, err
	}

	if withBlob {
		b, c, err := blob.Open(ctx, blob.ConfigFrom(e.cfg))
		if err != nil {
			e.Close(ctx)
			return nil, err
		}
		e.blob = b
		e.closers = append(e.closers, c)
	}
	return e, nil
}

func (e *env) deps() modkit.Deps {
	d := modkit.FromStore(e.st, e.cfg)
	d.Log = *e.log
	d.Blob = e.blob
	return d
}

// sink records runs in the log and, when clickhouse is configured, in collector_runs
// The CHSink is returned separately so serve can list recent runs from it
func (e *env) sink(ctx context.Context) (domain.RunSink, *stats.CHSink, error) {
	if e.st.CH == nil {
		return stats.LogSink{}, nil, nil
	}
	ch := stats.NewCHSink(e.st.CH)
	if err := ch.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}
	return stats.Multi{stats.LogSink{}, ch}, ch, nil
}

func (e *env) Close(ctx context.Context) {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	if e.st != nil {
		errs = append(errs, e.st.Close(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		e.log.Error().Err(err).Msg("failed to close stores")
	}
}
