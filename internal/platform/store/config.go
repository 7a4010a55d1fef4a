package store

import (
	"time"

	"ngmeta/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG  PGConfig
	CH  CHConfig
	RDS RedisConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// Guard/boot knobs
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
	Role    string
}

// RedisConfig configures redis connectivity
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// ConfigFromEnv reads SERVICE_PGSQL_*, SERVICE_CLICKHOUSE_* and SERVICE_REDIS_*
// a backend is enabled when its URL or address is set
func ConfigFromEnv(appName string) Config {
	svc := config.New().Prefix("SERVICE_")
	pg := svc.Prefix("PGSQL_")
	ch := svc.Prefix("CLICKHOUSE_")
	rd := svc.Prefix("REDIS_")

	cfg := Config{
		AppName: appName,
		PG: PGConfig{
			URL:            pg.MayString("URL", ""),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 8)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQueryMs:    pg.MayInt("SLOW_QUERY_MS", 500),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			URL:  ch.MayString("URL", ""),
			Role: appName,
		},
		RDS: RedisConfig{
			Addr:     rd.MayString("ADDR", ""),
			Password: rd.MayString("PASSWORD", ""),
			DB:       rd.MayInt("DB", 0),
		},
	}
	cfg.PG.Enabled = cfg.PG.URL != ""
	cfg.CH.Enabled = cfg.CH.URL != ""
	cfg.RDS.Enabled = cfg.RDS.Addr != ""
	return cfg
}
