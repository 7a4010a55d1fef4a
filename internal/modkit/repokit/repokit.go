// Package repokit holds the seams SQL repositories are written against
package repokit

import (
	"context"
	"time"

	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/store"
)

type (
	// Queryer is a pool or an open transaction
	Queryer = store.RowQuerier
	// TxRunner is a Queryer that can open transactions
	TxRunner = store.TxRunner
	// Row is a single row result
	Row = store.Row
)

// Binder builds a repo over a Queryer, so the same repo code runs on the pool or inside a tx
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a constructor to Binder
type BindFunc[T any] func(Queryer) T

// Bind calls f
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// MustBind binds b to q; a nil q is a wiring bug and panics
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic("repokit: MustBind on a nil Queryer")
	}
	return b.Bind(q)
}

// WithTx runs fn in one transaction of tx
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}

// DefaultGuardTimeout bounds Guard when ctx has no deadline
const DefaultGuardTimeout = 5 * time.Second

type guarder interface {
	Guard(context.Context) error
}

// Guard checks every configured backend of st once at startup
// The error carries ErrorCodeUnavailable
func Guard(ctx context.Context, st guarder) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultGuardTimeout)
		defer cancel()
	}
	if err := st.Guard(ctx); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "backend guard")
	}
	return nil
}
