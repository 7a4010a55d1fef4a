//go:build integration

package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"ngmeta/internal/platform/testkit/tcx"

	"github.com/rs/zerolog"
)

func TestOpen_AllBackends(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := Config{
		AppName: "store-it",
		PG:      PGConfig{Enabled: true, URL: tcx.Postgres(t), MaxConns: 2, LogSQL: true},
		CH:      CHConfig{Enabled: true, URL: tcx.ClickHouse(t), Role: "test"},
		RDS:     RedisConfig{Enabled: true, Addr: tcx.Redis(t)},
	}
	s, err := Open(ctx, cfg, WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	if err := s.Guard(ctx); err != nil {
		t.Fatalf("Guard: %v", err)
	}

	if _, err := s.PG.Exec(ctx, `CREATE TABLE it_kv (k TEXT PRIMARY KEY, v INT NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.PG.Tx(ctx, func(q RowQuerier) error {
		return ExecOne(ctx, q, `INSERT INTO it_kv (k, v) VALUES ($1, $2)`, "a", 1)
	}); err != nil {
		t.Fatalf("tx commit: %v", err)
	}
	rollback := errors.New("rollback")
	if err := s.PG.Tx(ctx, func(q RowQuerier) error {
		if _, err := q.Exec(ctx, `INSERT INTO it_kv (k, v) VALUES ('b', 2)`); err != nil {
			return err
		}
		return rollback
	}); !errors.Is(err, rollback) {
		t.Fatalf("tx rollback err = %v", err)
	}
	n, err := Scalar[int64](ctx, s.PG, `SELECT COUNT(*) FROM it_kv`)
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}

	if err := s.CH.Exec(ctx, `CREATE TABLE it_runs (id String, n UInt32) ENGINE = MergeTree ORDER BY id`); err != nil {
		t.Fatalf("ch create: %v", err)
	}
	if err := s.CH.Insert(ctx, "it_runs", [][]any{{"x", uint32(3)}, {"y", uint32(4)}}); err != nil {
		t.Fatalf("ch insert: %v", err)
	}
	rows, err := s.CH.Query(ctx, `SELECT sum(n) FROM it_runs`)
	if err != nil {
		t.Fatalf("ch query: %v", err)
	}
	defer rows.Close()
	var sum uint64
	if !rows.Next() || rows.Scan(&sum) != nil || sum != 7 {
		t.Fatalf("ch sum = %d", sum)
	}

	if err := s.RDS.Set(ctx, "it", "ok", 0).Err(); err != nil {
		t.Fatalf("redis set: %v", err)
	}
}
