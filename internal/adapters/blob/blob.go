// Package blob provides the storage collaborator derived documents and cursors are written to
//
// Every backend is addressed by absolute URI under a base address. The key inside the backend
// is the URI with the base stripped, so the same document has the same key on disk, in a bucket
// or in a table. Save overwrites and is atomic per key; Load reports a miss as (nil, false, nil).
package blob

import (
	"context"
	"net/url"
	"strings"

	perr "ngmeta/internal/platform/errors"
)

// Storage loads and saves whole documents by URI
type Storage interface {
	BaseAddress() string
	ResolveURI(parts ...string) string
	Load(ctx context.Context, uri string) ([]byte, bool, error)
	Save(ctx context.Context, contentType, uri string, content []byte) error
}

// Lister is implemented by backends that can enumerate stored keys
type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// Addr maps URIs under a base address to backend keys
type Addr struct {
	base string
}

// NewAddr validates base and joins container to it; the result always ends in '/'
func NewAddr(base, container string) (Addr, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || !u.IsAbs() {
		return Addr{}, perr.InvalidArgf("storage base address %q is not an absolute URI", base)
	}
	b := strings.TrimSuffix(u.String(), "/") + "/"
	if c := strings.Trim(container, "/"); c != "" {
		b += c + "/"
	}
	return Addr{base: b}, nil
}

// BaseAddress is the absolute prefix every stored URI starts with
func (a Addr) BaseAddress() string { return a.base }

// ResolveURI joins parts under the base address
func (a Addr) ResolveURI(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			clean = append(clean, p)
		}
	}
	return a.base + strings.Join(clean, "/")
}

// Key strips the base address from uri
func (a Addr) Key(uri string) (string, error) {
	if !strings.HasPrefix(uri, a.base) {
		return "", perr.InvalidArgf("uri %q is outside storage base %q", uri, a.base)
	}
	key := strings.TrimPrefix(uri, a.base)
	if key == "" || strings.HasSuffix(key, "/") {
		return "", perr.InvalidArgf("uri %q does not name a document", uri)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", perr.InvalidArgf("uri %q has an invalid path segment", uri)
		}
	}
	return key, nil
}
