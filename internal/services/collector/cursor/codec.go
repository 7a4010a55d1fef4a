// Package cursor holds the durable positions a collector reads and advances
//
// A cursor document is a JSON object whose "value" is an RFC3339 UTC timestamp;
// every other key is metadata and round-trips untouched
package cursor

import (
	"bytes"
	"encoding/json"

	"ngmeta/internal/adapters/catalog"
	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/services/collector/domain"
)

// ValueKey is the document key holding the position
const ValueKey = "value"

// Format renders a position value the way cursor documents store it
func Format(p domain.Position) string {
	return p.Value.UTC().Format("2006-01-02T15:04:05.0000000Z07:00")
}

// Encode renders p as a cursor document
// map keys marshal sorted, so equal positions encode to equal bytes
func Encode(p domain.Position) ([]byte, error) {
	doc := make(map[string]any, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		doc[k] = v
	}
	doc[ValueKey] = Format(p)
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeParse, "encode cursor")
	}
	return b, nil
}

// Decode reads a cursor document; a missing or malformed value is a parse error
func Decode(b []byte) (domain.Position, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return domain.Position{}, perr.Wrap(err, perr.ErrorCodeParse, "decode cursor")
	}
	raw, ok := doc[ValueKey].(string)
	if !ok {
		return domain.Position{}, perr.WithField(perr.Parsef("cursor document has no %q string", ValueKey), ValueKey)
	}
	ts, err := catalog.ParseTimestamp(raw)
	if err != nil {
		return domain.Position{}, perr.WithField(err, ValueKey)
	}
	delete(doc, ValueKey)
	p := domain.At(ts)
	if len(doc) > 0 {
		p.Metadata = doc
	}
	return p, nil
}
