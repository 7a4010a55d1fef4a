package api

import (
	"time"

	"ngmeta/internal/platform/config"
)

// Settings are the server level knobs read with the NGMETA_API_ prefix
type Settings struct {
	Addr     string
	Profiler bool
	Origins  []string
	Timeout  time.Duration
	Grace    time.Duration
}

// SettingsFrom reads server settings from cfg
func SettingsFrom(cfg config.Conf) Settings {
	a := cfg.Prefix("NGMETA_API_")
	return Settings{
		Addr:     a.MayPort("PORT", 4000),
		Profiler: a.MayBool("PPROF", false),
		Origins:  a.MayCSV("CORS_ORIGINS", nil),
		Timeout:  a.MayDuration("TIMEOUT", 30*time.Second),
		Grace:    a.MayDuration("SHUTDOWN_GRACE", 10*time.Second),
	}
}
