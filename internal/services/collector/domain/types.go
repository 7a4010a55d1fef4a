// Package domain holds the collector's types and ports
package domain

import (
	"strings"
	"time"
)

// Precision is the finest step a cursor document stores (seven fractional digits)
// Commit timestamps are truncated to it so a saved front compares equal to the commit it names
const Precision = 100 * time.Nanosecond

var (
	// MinTime is the position of a cursor that has never been saved
	MinTime = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	// MaxTime bounds a front cursor when no downstream stage limits it
	MaxTime = time.Date(9999, 12, 31, 23, 59, 59, 999999900, time.UTC)
)

// CatalogEntry is one item of a feed page
// Validation tags run at the ingestion boundary; a failing entry is a parse error
type CatalogEntry struct {
	ResourceURI     string         `json:"@id" validate:"required,url"`
	EntryType       string         `json:"@type" validate:"required"`
	CommitID        string         `json:"commitId" validate:"required"`
	CommitTimestamp time.Time      `json:"commitTimeStamp" validate:"required"`
	EntityID        string         `json:"id" validate:"required"`
	EntityVersion   string         `json:"version" validate:"required"`
	Payload         map[string]any `json:"payload,omitempty"`
}

// CommitGroup is every entry sharing one commit id; it is never split across batches
type CommitGroup struct {
	CommitID  string
	Timestamp time.Time
	Items     []CatalogEntry
}

// Len is the number of items the group adds to a batch
func (g CommitGroup) Len() int { return len(g.Items) }

// Position is a cursor value plus whatever metadata was stored next to it
type Position struct {
	Value    time.Time
	Metadata map[string]any
}

// At returns a position without metadata
func At(ts time.Time) Position { return Position{Value: ts.UTC()} }

// Min is the epoch position
func Min() Position { return At(MinTime) }

// Max is the unbounded position
func Max() Position { return At(MaxTime) }

// BatchResult is what a processor reports for one flushed batch
// Results are combined with Add by the caller; no counter is shared between goroutines
type BatchResult struct {
	Items      int            `json:"items"`
	Targets    int            `json:"targets"`
	Created    int            `json:"created"`
	Merged     int            `json:"merged"`
	Triples    int            `json:"triples"`
	LoadErrors int            `json:"load_errors"`
	ByType     map[string]int `json:"by_type,omitempty"`
	// Before is the number of distinct entity ids in the batch as published
	// After is the number of distinct documents they folded into
	Before int `json:"before"`
	After  int `json:"after"`
}

// Add returns the field-wise sum of r and o
func (r BatchResult) Add(o BatchResult) BatchResult {
	out := BatchResult{
		Items:      r.Items + o.Items,
		Targets:    r.Targets + o.Targets,
		Created:    r.Created + o.Created,
		Merged:     r.Merged + o.Merged,
		Triples:    r.Triples + o.Triples,
		LoadErrors: r.LoadErrors + o.LoadErrors,
		Before:     r.Before + o.Before,
		After:      r.After + o.After,
	}
	if len(r.ByType)+len(o.ByType) > 0 {
		out.ByType = make(map[string]int, len(r.ByType)+len(o.ByType))
		for k, v := range r.ByType {
			out.ByType[k] += v
		}
		for k, v := range o.ByType {
			out.ByType[k] += v
		}
	}
	return out
}

// Result summarizes one collector run
type Result struct {
	RunID        string
	Collector    string
	MadeProgress bool
	Commits      int
	Items        int
	Batches      int
	Front        time.Time // front before the run
	Advanced     time.Time // front after the run
	Back         time.Time
	StartedAt    time.Time
	Elapsed      time.Duration
	Processed    BatchResult
}

// Status is how a run ended, as recorded by the stats sink
type Status string

// Run statuses
const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// IsDeleteType reports whether entryType is one of the configured tombstone types
func IsDeleteType(entryType string, deleteTypes []string) bool {
	for _, d := range deleteTypes {
		if strings.EqualFold(entryType, d) {
			return true
		}
	}
	return false
}
