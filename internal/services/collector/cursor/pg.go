package cursor

import (
	"context"
	"encoding/json"

	"ngmeta/internal/modkit/repokit"
	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/store"
	"ngmeta/internal/services/collector/domain"
)

// Schema creates the cursor table
// value is kept as text so sub-microsecond feed timestamps survive the round trip
const Schema = `
CREATE TABLE IF NOT EXISTS ngmeta_cursors (
	name       TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// cursorRepo is the sql surface of the postgres cursor
type cursorRepo struct{ q repokit.Queryer }

var cursorBinder = repokit.BindFunc[cursorRepo](func(q repokit.Queryer) cursorRepo {
	return cursorRepo{q: q}
})

type cursorRow struct {
	value    string
	metadata []byte
}

func scanCursorRow(r store.Row) (cursorRow, error) {
	var c cursorRow
	err := r.Scan(&c.value, &c.metadata)
	return c, err
}

func (r cursorRepo) get(ctx context.Context, name string) (cursorRow, error) {
	return store.One(ctx, r.q, scanCursorRow,
		`SELECT value, metadata FROM ngmeta_cursors WHERE name = $1`, name)
}

func (r cursorRepo) put(ctx context.Context, name, value string, metadata []byte) error {
	return store.ExecOne(ctx, r.q, `
		INSERT INTO ngmeta_cursors (name, value, metadata, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (name) DO UPDATE
		SET value = EXCLUDED.value, metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at`,
		name, value, string(metadata))
}

// Postgres keeps one named cursor row in ngmeta_cursors
type Postgres struct {
	db   repokit.TxRunner
	name string
}

// NewPostgres returns the cursor called name
func NewPostgres(db repokit.TxRunner, name string) *Postgres {
	return &Postgres{db: db, name: name}
}

// EnsureSchema creates the cursor table when missing
func (c *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, Schema); err != nil {
		return perr.FromPostgres(err, "create ngmeta_cursors")
	}
	return nil
}

// Load reads the row; no row reads as the epoch
func (c *Postgres) Load(ctx context.Context) (domain.Position, error) {
	row, err := repokit.MustBind[cursorRepo](cursorBinder, c.db).get(ctx, c.name)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return domain.Min(), nil
	}
	if err != nil {
		return domain.Position{}, perr.FromPostgresf(err, "load cursor %s", c.name)
	}
	doc := map[string]any{}
	if len(row.metadata) > 0 {
		if err := json.Unmarshal(row.metadata, &doc); err != nil {
			return domain.Position{}, perr.Wrapf(err, perr.ErrorCodeParse, "cursor %s metadata", c.name)
		}
	}
	doc[ValueKey] = row.value
	b, err := json.Marshal(doc)
	if err != nil {
		return domain.Position{}, perr.Wrap(err, perr.ErrorCodeParse, "re-encode cursor")
	}
	return Decode(b)
}

// Save upserts the row inside a transaction
func (c *Postgres) Save(ctx context.Context, p domain.Position) error {
	meta := p.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	mb, err := json.Marshal(meta)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeParse, "encode cursor metadata")
	}
	err = repokit.WithTx(ctx, c.db, func(q repokit.Queryer) error {
		return repokit.MustBind[cursorRepo](cursorBinder, q).put(ctx, c.name, Format(p), mb)
	})
	if err != nil {
		return perr.FromPostgresf(err, "save cursor %s", c.name)
	}
	return nil
}
