package cursor

import (
	"context"
	"strings"

	"ngmeta/internal/adapters/blob"
	"ngmeta/internal/adapters/catalog"
	"ngmeta/internal/modkit/repokit"
	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/services/collector/domain"

	"github.com/redis/go-redis/v9"
)

// Backends are the collaborators a cursor spec may need; unset ones reject specs that use them
type Backends struct {
	Storage blob.Storage
	PG      repokit.TxRunner
	Redis   *redis.Client
	HTTP    catalog.Getter
	// HTTPPath selects the timestamp inside an http cursor document
	HTTPPath string
}

// Open resolves a cursor spec:
//
//	min | max                 fixed read-only bounds
//	memory: | memory:<ts>     process-local
//	file:<path>               local JSON document
//	storage:<name>            document in blob storage
//	pg:<name>                 row in ngmeta_cursors
//	redis:<key>               redis string
//	http(s)://...             read-only document published elsewhere
func Open(ctx context.Context, spec string, b Backends) (domain.ReadCursor, error) {
	spec = strings.TrimSpace(spec)
	switch strings.ToLower(spec) {
	case "min":
		return Min(), nil
	case "max":
		return Max(), nil
	}
	if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
		if b.HTTP == nil {
			return nil, perr.InvalidArgf("cursor %q needs an http client", spec)
		}
		return NewHTTP(b.HTTP, spec, b.HTTPPath)
	}
	return OpenWritable(ctx, spec, b)
}

// OpenWritable is Open restricted to specs that can be saved
func OpenWritable(ctx context.Context, spec string, b Backends) (domain.Cursor, error) {
	kind, arg, ok := strings.Cut(strings.TrimSpace(spec), ":")
	if !ok {
		return nil, perr.InvalidArgf("cursor %q is not writable", spec)
	}
	kind = strings.ToLower(kind)
	if arg == "" && (kind == "file" || kind == "pg" || kind == "postgres" || kind == "redis") {
		return nil, perr.InvalidArgf("%s cursor needs a name", kind)
	}
	switch kind {
	case "memory":
		if arg == "" {
			return NewMemory(domain.Min()), nil
		}
		ts, err := catalog.ParseTimestamp(arg)
		if err != nil {
			return nil, perr.WithField(err, "cursor")
		}
		return NewMemory(domain.At(ts)), nil
	case "file":
		return NewFile(arg), nil
	case "storage":
		if b.Storage == nil {
			return nil, perr.InvalidArgf("cursor %q needs blob storage", spec)
		}
		if arg == "" {
			arg = "cursor.json"
		}
		return NewStorage(b.Storage, arg), nil
	case "pg", "postgres":
		if b.PG == nil {
			return nil, perr.InvalidArgf("cursor %q needs postgres (SERVICE_PGSQL_URL)", spec)
		}
		c := NewPostgres(b.PG, arg)
		if err := c.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return c, nil
	case "redis":
		if b.Redis == nil {
			return nil, perr.InvalidArgf("cursor %q needs redis (SERVICE_REDIS_ADDR)", spec)
		}
		return NewRedis(b.Redis, arg), nil
	}
	return nil, perr.InvalidArgf("unknown cursor kind %q", kind)
}
