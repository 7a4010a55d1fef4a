package module

import (
	"time"

	"ngmeta/internal/platform/config"
)

// DefaultIndexURI is the public NuGet catalog root
const DefaultIndexURI = "https://api.nuget.org/v3/catalog0/index.json"

// Options holds configuration for one collector
type Options struct {
	IndexURI         string
	BatchSize        int
	MaxCommitsPerRun int
	FetchTimeout     time.Duration
	RunTimeout       time.Duration
	BatchTimeout     time.Duration
	Interval         time.Duration
	EnableLeases     bool
	LeaseTTL         time.Duration

	// cursor specs, see cursor.Open
	Front    string
	Back     string
	HTTPPath string
}

// FromConfig reads collector options with the NGMETA_COLLECTOR_ and NGMETA_CURSOR_ prefixes
// The default front cursor is a file named after the collector
func FromConfig(cfg config.Conf, name string) Options {
	c := cfg.Prefix("NGMETA_COLLECTOR_")
	cur := cfg.Prefix("NGMETA_CURSOR_")
	return Options{
		IndexURI:         c.MayString("INDEX", DefaultIndexURI),
		BatchSize:        c.MayInt("BATCH_SIZE", 0),
		MaxCommitsPerRun: c.MayInt("MAX_COMMITS", 0),
		FetchTimeout:     c.MayDuration("FETCH_TIMEOUT", 5*time.Minute),
		RunTimeout:       c.MayDuration("RUN_TIMEOUT", 0),
		BatchTimeout:     c.MayDuration("BATCH_TIMEOUT", 10*time.Minute),
		Interval:         c.MayDuration("INTERVAL", 30*time.Second),
		EnableLeases:     c.MayBool("LEASES", false),
		LeaseTTL:         c.MayDuration("LEASE_TTL", 30*time.Minute),
		Front:            cur.MayString("FRONT", "file:"+name+".cursor.json"),
		Back:             cur.MayString("BACK", "max"),
		HTTPPath:         cur.MayString("HTTP_PATH", ""),
	}
}
