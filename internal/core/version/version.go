// Package version provides information about the build version of the service.
package version

// BuildInfo holds version information about the binary.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information. The version, commit, and date variables
// are set at build time using -ldflags.
func Info() BuildInfo {
	// -ldflags "-X 'ngmeta/internal/core/version.version=v0.1.0'
	// -X 'ngmeta/internal/core/version.commit=abcd' -X 'ngmeta/internal/core/version.date=2026-01-02'"
	return BuildInfo{
		Service: "ngmeta",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// String is the one line form printed by the CLI
func (b BuildInfo) String() string {
	return b.Service + " " + b.Version + " (" + b.Commit + ", " + b.Date + ")"
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
