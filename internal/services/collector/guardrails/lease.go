package guardrails

import (
	"context"
	"errors"
	"time"

	"ngmeta/internal/modkit/repokit"
	perr "ngmeta/internal/platform/errors"
)

// ErrLeaseHeld signals another process is running the same collector
var ErrLeaseHeld = errors.New("collector: run lease already held")

// LeaseSchema creates the lease table
const LeaseSchema = `
CREATE TABLE IF NOT EXISTS ngmeta_collector_leases (
	collector  TEXT PRIMARY KEY,
	holder     TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// LeaseFunc runs do while holding the lease for collector
type LeaseFunc func(ctx context.Context, collector, holder string, do func(context.Context) error) error

// MakeLease returns a LeaseFunc backed by ngmeta_collector_leases
// A lease is claimed when absent or expired and released when do returns
// ttl bounds how long a crashed holder blocks others
func MakeLease(db repokit.TxRunner, ttl time.Duration) LeaseFunc {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return func(ctx context.Context, collector, holder string, do func(context.Context) error) error {
		var claimed bool
		err := db.Tx(ctx, func(q repokit.Queryer) error {
			rows, err := q.Query(ctx, `
				INSERT INTO ngmeta_collector_leases (collector, holder, expires_at)
				VALUES ($1, $2, now() + make_interval(secs => $3))
				ON CONFLICT (collector) DO UPDATE
				SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
				WHERE ngmeta_collector_leases.expires_at < now()
				RETURNING true`, collector, holder, ttl.Seconds())
			if err != nil {
				return err
			}
			defer rows.Close()
			claimed = rows.Next()
			return rows.Err()
		})
		if err != nil {
			return perr.FromPostgresf(err, "claim lease %s", collector)
		}
		if !claimed {
			return ErrLeaseHeld
		}
		defer func() {
			// release on a fresh context so a cancelled run still frees the lease
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_, _ = db.Exec(rctx, `DELETE FROM ngmeta_collector_leases WHERE collector = $1 AND holder = $2`, collector, holder)
		}()
		return do(ctx)
	}
}

// IsLeaseHeld reports contention on a collector lease
func IsLeaseHeld(err error) bool { return errors.Is(err, ErrLeaseHeld) }
