package service

import (
	"sort"
	"strings"
	"time"

	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/services/collector/domain"
)

// GroupCommits keeps entries with front < commitTimestamp <= back, drops repeats of
// the same (resource, commit) pair and groups the rest by commit id
// Groups are ordered by (timestamp, commit id); items within a group by (lower id, version, resource)
// A commit id seen with two timestamps is an invariant violation
func GroupCommits(entries []domain.CatalogEntry, front, back time.Time) ([]domain.CommitGroup, error) {
	type itemKey struct{ resource, commit string }
	seen := make(map[itemKey]struct{}, len(entries))
	byCommit := make(map[string]*domain.CommitGroup)

	for _, e := range entries {
		ts := e.CommitTimestamp.UTC().Truncate(domain.Precision)
		e.CommitTimestamp = ts
		if !ts.After(front) || ts.After(back) {
			continue
		}
		k := itemKey{e.ResourceURI, e.CommitID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		g, ok := byCommit[e.CommitID]
		if !ok {
			g = &domain.CommitGroup{CommitID: e.CommitID, Timestamp: ts}
			byCommit[e.CommitID] = g
		} else if !g.Timestamp.Equal(ts) {
			return nil, perr.WithField(perr.Invariantf(
				"commit %s carries two timestamps (%s, %s)",
				e.CommitID, g.Timestamp.Format(time.RFC3339Nano), ts.Format(time.RFC3339Nano),
			), "commitId")
		}
		g.Items = append(g.Items, e)
	}

	groups := make([]domain.CommitGroup, 0, len(byCommit))
	for _, g := range byCommit {
		sort.Slice(g.Items, func(i, j int) bool { return lessItem(g.Items[i], g.Items[j]) })
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].Timestamp.Equal(groups[j].Timestamp) {
			return groups[i].Timestamp.Before(groups[j].Timestamp)
		}
		return groups[i].CommitID < groups[j].CommitID
	})
	return groups, nil
}

func lessItem(a, b domain.CatalogEntry) bool {
	if x, y := strings.ToLower(a.EntityID), strings.ToLower(b.EntityID); x != y {
		return x < y
	}
	if a.EntityVersion != b.EntityVersion {
		return a.EntityVersion < b.EntityVersion
	}
	return a.ResourceURI < b.ResourceURI
}

// limitGroups cuts groups after max, extended so no timestamp is split across the cut
func limitGroups(groups []domain.CommitGroup, max int) []domain.CommitGroup {
	if max <= 0 || len(groups) <= max {
		return groups
	}
	cut := max
	last := groups[max-1].Timestamp
	for cut < len(groups) && groups[cut].Timestamp.Equal(last) {
		cut++
	}
	return groups[:cut]
}

// safeIndex returns the index of the newest processed group the cursor may move to,
// or -1 when none: the first done groups are processed and no unprocessed group shares its timestamp
func safeIndex(groups []domain.CommitGroup, done int) int {
	if done <= 0 {
		return -1
	}
	if done >= len(groups) {
		return len(groups) - 1
	}
	next := groups[done].Timestamp
	for i := done - 1; i >= 0; i-- {
		if groups[i].Timestamp.Before(next) {
			return i
		}
	}
	return -1
}
