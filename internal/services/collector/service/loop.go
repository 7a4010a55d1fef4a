package service

import (
	"context"
	"time"

	"ngmeta/internal/platform/logger"
	"ngmeta/internal/services/collector/domain"
	"ngmeta/internal/services/collector/guardrails"
)

// Runner is one collector pass
type Runner interface {
	Name() string
	Run(ctx context.Context, front domain.Cursor, back domain.ReadCursor) (domain.Result, error)
}

// Summary adds up the passes of one Loop
type Summary struct {
	Runs      int
	Commits   int
	Items     int
	Batches   int
	Processed domain.BatchResult
}

func (s *Summary) add(r domain.Result) {
	s.Runs++
	s.Commits += r.Commits
	s.Items += r.Items
	s.Batches += r.Batches
	s.Processed = s.Processed.Add(r.Processed)
}

// Loop repeats passes while they make progress, then sleeps interval and starts over
// With once it returns after the first pass that makes no progress
// A failed pass ends the loop; a held lease counts as no progress
func Loop(ctx context.Context, r Runner, front domain.Cursor, back domain.ReadCursor, interval time.Duration, once bool) (Summary, error) {
	var sum Summary
	log := logger.Named(r.Name())
	for {
		res, err := r.Run(ctx, front, back)
		switch {
		case guardrails.IsLeaseHeld(err):
			res.MadeProgress = false
		case err != nil:
			sum.add(res)
			return sum, err
		default:
			sum.add(res)
		}
		if res.MadeProgress {
			continue
		}
		if once {
			return sum, nil
		}
		log.Debug().Dur("interval", interval).Msg("caught up; sleeping")
		if err := sleepCtx(ctx, interval); err != nil {
			return sum, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = time.Second
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
