package ch

import (
	"os"
	"runtime"
	"strings"

	"ngmeta/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo tags connections so system.query_log shows which binary and role ran a query
// role is the subcommand, tag the application name
func BuildClientInfo(role, tag string) clickhouse.ClientInfo {
	bi := version.Info()
	host, _ := os.Hostname()
	if tag == "" {
		tag = bi.Service
	}
	return clickhouse.ClientInfo{Products: []struct{ Name, Version string }{
		{Name: strings.TrimSpace(tag), Version: bi.Version},
		{Name: "role", Version: strings.TrimSpace(role)},
		{Name: "commit", Version: bi.Commit},
		{Name: "go", Version: runtime.Version()},
		{Name: "host", Version: host},
	}}
}
