// Package domain holds the resolver's types and ports
package domain

import (
	"context"
)

// DefaultDeleteTypes are the entry types that tombstone a version
var DefaultDeleteTypes = []string{"nuget:PackageDelete", "PackageDelete"}

// MergeResult reports one document merge
type MergeResult struct {
	Target  string
	URI     string
	Created bool
	Triples int
	// LoadError is set when the existing document could not be read and was treated as absent
	LoadError bool
}

// DetailFetcher fetches the full documents behind catalog entries
type DetailFetcher interface {
	FetchDocuments(ctx context.Context, uris []string) (map[string]map[string]any, error)
}
