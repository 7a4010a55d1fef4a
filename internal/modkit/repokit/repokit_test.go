package repokit

import (
	"context"
	"errors"
	"testing"

	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/store"
	kit "ngmeta/internal/platform/testkit"
)

type fakeQ struct{ txs int }

func (f *fakeQ) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, nil }
func (f *fakeQ) Query(context.Context, string, ...any) (store.Rows, error)      { return nil, nil }
func (f *fakeQ) QueryRow(context.Context, string, ...any) store.Row             { return nil }
func (f *fakeQ) Tx(_ context.Context, fn func(q Queryer) error) error {
	f.txs++
	return fn(f)
}

type named struct{ q Queryer }

func TestMustBind(t *testing.T) {
	b := BindFunc[named](func(q Queryer) named { return named{q: q} })

	q := &fakeQ{}
	if got := MustBind[named](b, q); got.q != q {
		t.Fatalf("MustBind did not pass the queryer through")
	}
	kit.MustPanic(t, func() { _ = MustBind[named](b, nil) })
}

func TestWithTx(t *testing.T) {
	q := &fakeQ{}
	want := errors.New("boom")
	if err := WithTx(context.Background(), q, func(Queryer) error { return want }); !errors.Is(err, want) {
		t.Fatalf("WithTx err = %v", err)
	}
	if q.txs != 1 {
		t.Fatalf("WithTx should open exactly one tx, got %d", q.txs)
	}
}

type guardFunc func(context.Context) error

func (g guardFunc) Guard(ctx context.Context) error { return g(ctx) }

func TestGuard(t *testing.T) {
	err := Guard(context.Background(), guardFunc(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("Guard should bound the context")
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("Guard: %v", err)
	}

	err = Guard(context.Background(), guardFunc(func(context.Context) error { return errors.New("pg down") }))
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("Guard err = %v", err)
	}
}
