package stats

import (
	"context"
	"errors"
	"time"

	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/logger"
	"ngmeta/internal/platform/store"
	"ngmeta/internal/services/collector/domain"
)

// Run is one row of collector_runs
type Run struct {
	RunID       string    `json:"run_id"`
	Collector   string    `json:"collector"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	FrontBefore time.Time `json:"front_before"`
	FrontAfter  time.Time `json:"front_after"`
	Commits     int       `json:"commits"`
	Items       int       `json:"items"`
	Batches     int       `json:"batches"`
	Created     int       `json:"created"`
	Merged      int       `json:"merged"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// RunFrom flattens a collector result into a row
func RunFrom(r domain.Result, status domain.Status, runErr error) Run {
	run := Run{
		RunID:       r.RunID,
		Collector:   r.Collector,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.StartedAt.Add(r.Elapsed),
		FrontBefore: r.Front,
		FrontAfter:  r.Advanced,
		Commits:     r.Commits,
		Items:       r.Items,
		Batches:     r.Batches,
		Created:     r.Processed.Created,
		Merged:      r.Processed.Merged,
		Status:      string(status),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if run.FrontAfter.IsZero() {
		run.FrontAfter = run.FrontBefore
	}
	return run
}

// LogSink writes each run as one structured log line
type LogSink struct{}

// Record implements domain.RunSink
func (LogSink) Record(ctx context.Context, r domain.Result, status domain.Status, runErr error) error {
	run := RunFrom(r, status, runErr)
	logger.C(ctx).Info().
		Str("status", run.Status).
		Int("commits", run.Commits).
		Int("items", run.Items).
		Int("created", run.Created).
		Int("merged", run.Merged).
		Time("front_before", run.FrontBefore).
		Time("front_after", run.FrontAfter).
		Msg("collector run recorded")
	return nil
}

// Multi records into every sink and joins their errors
type Multi []domain.RunSink

// Record implements domain.RunSink
func (m Multi) Record(ctx context.Context, r domain.Result, status domain.Status, runErr error) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, r, status, runErr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunsSchema creates the ClickHouse run table
const RunsSchema = `
CREATE TABLE IF NOT EXISTS collector_runs (
	run_id       String,
	collector    LowCardinality(String),
	started_at   DateTime64(3, 'UTC'),
	finished_at  DateTime64(3, 'UTC'),
	front_before DateTime64(7, 'UTC'),
	front_after  DateTime64(7, 'UTC'),
	commits      UInt32,
	items        UInt32,
	batches      UInt32,
	created      UInt32,
	merged       UInt32,
	status       LowCardinality(String),
	error        String
) ENGINE = MergeTree
ORDER BY (collector, started_at)`

// ClickHouse DateTime64 range
var (
	chMin = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	chMax = time.Date(2299, 12, 31, 23, 59, 59, 0, time.UTC)
)

func clampCH(t time.Time) time.Time {
	switch {
	case t.Before(chMin):
		return chMin
	case t.After(chMax):
		return chMax
	default:
		return t.UTC()
	}
}

// CHSink stores runs in ClickHouse
type CHSink struct {
	ch store.Clickhouse
}

// NewCHSink returns a sink over ch; call EnsureSchema once before recording
func NewCHSink(ch store.Clickhouse) *CHSink {
	if ch == nil {
		panic("stats: NewCHSink requires a ClickHouse handle")
	}
	return &CHSink{ch: ch}
}

// EnsureSchema creates collector_runs when missing
func (s *CHSink) EnsureSchema(ctx context.Context) error {
	if err := s.ch.Exec(ctx, RunsSchema); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "create collector_runs")
	}
	return nil
}

// Record implements domain.RunSink
func (s *CHSink) Record(ctx context.Context, r domain.Result, status domain.Status, runErr error) error {
	run := RunFrom(r, status, runErr)
	row := []any{
		run.RunID,
		run.Collector,
		clampCH(run.StartedAt),
		clampCH(run.FinishedAt),
		clampCH(run.FrontBefore),
		clampCH(run.FrontAfter),
		uint32(run.Commits),
		uint32(run.Items),
		uint32(run.Batches),
		uint32(run.Created),
		uint32(run.Merged),
		run.Status,
		run.Error,
	}
	if err := s.ch.Insert(ctx, "collector_runs", [][]any{row}); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeDB, "insert run %s", run.RunID)
	}
	return nil
}

// Recent returns the latest runs of collector, newest first; an empty collector means all
func (s *CHSink) Recent(ctx context.Context, collector string, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	sql := `SELECT run_id, collector, started_at, finished_at, front_before, front_after,
		commits, items, batches, created, merged, status, error
		FROM collector_runs`
	args := []any{}
	if collector != "" {
		sql += ` WHERE collector = ?`
		args = append(args, collector)
	}
	sql += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.ch.Query(ctx, sql, args...)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "query collector_runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                                        Run
			commits, items, batches, created, merged uint32
		)
		if err := rows.Scan(&r.RunID, &r.Collector, &r.StartedAt, &r.FinishedAt, &r.FrontBefore, &r.FrontAfter,
			&commits, &items, &batches, &created, &merged, &r.Status, &r.Error); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeDB, "scan collector_runs")
		}
		r.Commits, r.Items, r.Batches = int(commits), int(items), int(batches)
		r.Created, r.Merged = int(created), int(merged)
		out = append(out, r)
	}
	return out, rows.Err()
}

var (
	_ domain.RunSink = LogSink{}
	_ domain.RunSink = Multi(nil)
	_ domain.RunSink = (*CHSink)(nil)
)
