// Package identity derives the stable keys that name derived documents
// Entity ids are compared case-insensitively; every document path uses the folded form
package identity

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// pool of fresh transformer chains; a Caser keeps state between calls
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFC, cases.Lower(language.Und))
	},
}

// Normalize returns the invariant lower-case NFC form of an entity id
func Normalize(id string) string {
	id = strings.TrimSpace(strings.ToValidUTF8(id, ""))
	if id == "" {
		return ""
	}
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, id)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		return strings.ToLower(id)
	}
	return out
}

// NormalizeVersion folds a version string for use in a path
// Build metadata after '+' is dropped and a zero fourth component is trimmed (1.0.0.0 -> 1.0.0)
func NormalizeVersion(v string) string {
	v = Normalize(v)
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}
	release, pre, hasPre := strings.Cut(v, "-")
	parts := strings.Split(release, ".")
	if len(parts) == 4 && parts[3] == "0" {
		release = strings.Join(parts[:3], ".")
	}
	if hasPre {
		return release + "-" + pre
	}
	return release
}

// Equal reports whether two ids name the same entity
func Equal(a, b string) bool { return Normalize(a) == Normalize(b) }
