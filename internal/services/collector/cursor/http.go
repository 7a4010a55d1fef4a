package cursor

import (
	"context"

	"ngmeta/internal/adapters/catalog"
	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/services/collector/domain"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// HTTP reads a position published by another stage; it is read-only
type HTTP struct {
	get  catalog.Getter
	uri  string
	path jp.Expr
}

// NewHTTP returns a read cursor over the document at uri
// an empty path reads the document as a cursor document, otherwise path selects the timestamp
func NewHTTP(get catalog.Getter, uri, path string) (*HTTP, error) {
	h := &HTTP{get: get, uri: uri}
	if path != "" {
		x, err := jp.ParseString(path)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "cursor path %q", path)
		}
		h.path = x
	}
	return h, nil
}

// Load fetches and reads the position
func (h *HTTP) Load(ctx context.Context) (domain.Position, error) {
	b, err := h.get.Get(ctx, h.uri)
	if err != nil {
		return domain.Position{}, err
	}
	if h.path == nil {
		return Decode(b)
	}
	doc, err := oj.Parse(b)
	if err != nil {
		return domain.Position{}, perr.Wrapf(err, perr.ErrorCodeParse, "cursor document %s", h.uri)
	}
	for _, v := range h.path.Get(doc) {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		ts, err := catalog.ParseTimestamp(raw)
		if err != nil {
			return domain.Position{}, err
		}
		return domain.Position{Value: ts, Metadata: map[string]any{"source": h.uri}}, nil
	}
	return domain.Position{}, perr.WithField(perr.Parsef("cursor document %s has no value at %s", h.uri, h.path.String()), "path")
}
