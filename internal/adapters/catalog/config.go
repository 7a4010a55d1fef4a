package catalog

import (
	"ngmeta/internal/platform/config"
)

// OptionsFrom reads client and reader options with the NGMETA_FETCH_ prefix
// Zero values fall through to the NewClient and NewReader defaults
func OptionsFrom(cfg config.Conf) (Options, ReaderOptions) {
	f := cfg.Prefix("NGMETA_FETCH_")
	client := Options{
		UserAgent:         f.MayString("USER_AGENT", ""),
		Timeout:           f.MayDuration("TIMEOUT", 0),
		MaxRetries:        f.MayInt("RETRIES", 0),
		RetryBase:         f.MayDuration("RETRY_BASE", 0),
		RetryMax:          f.MayDuration("RETRY_MAX", 0),
		RequestsPerSecond: f.MayFloat64("RPS", 0),
		Burst:             f.MayInt("BURST", 0),
	}
	reader := ReaderOptions{
		Concurrency:     f.MayInt("CONCURRENCY", DefaultConcurrency),
		IDSelector:      f.MayString("ID_PATH", DefaultIDSelector),
		VersionSelector: f.MayString("VERSION_PATH", DefaultVersionSelector),
	}
	return client, reader
}
