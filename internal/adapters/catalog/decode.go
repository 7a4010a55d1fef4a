package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/services/collector/domain"

	"github.com/ohler55/ojg/jp"
)

// PageRef is one entry of the root index
type PageRef struct {
	URI             string    `json:"@id" validate:"required,url"`
	CommitTimestamp time.Time `json:"-"`
	RawTimestamp    string    `json:"commitTimeStamp"`
}

type indexDoc struct {
	Items []PageRef `json:"items"`
}

type pageDoc struct {
	Items []map[string]any `json:"items"`
}

// reserved item keys that map onto CatalogEntry fields instead of the payload
var reserved = []string{"@id", "@type", "commitId", "commitTimeStamp"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp reads an ISO-8601 timestamp; a zone-less value is UTC
// Sub-100ns digits are dropped, matching what a cursor document can hold
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC().Truncate(domain.Precision), nil
		}
	}
	return time.Time{}, perr.Parsef("invalid timestamp %q", s)
}

func decodeJSON(b []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(dst)
}

// decodeIndex parses the root index document
func decodeIndex(uri string, b []byte) ([]PageRef, error) {
	var doc indexDoc
	if err := decodeJSON(b, &doc); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeParse, "index %s", uri)
	}
	for i := range doc.Items {
		p := &doc.Items[i]
		if err := check(p, "index "+uri); err != nil {
			return nil, err
		}
		if p.RawTimestamp != "" {
			ts, err := ParseTimestamp(p.RawTimestamp)
			if err != nil {
				return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeParse, "index %s page %s", uri, p.URI), "commitTimeStamp")
			}
			p.CommitTimestamp = ts
		}
	}
	return doc.Items, nil
}

// selector is a compiled JSONPath with the top-level key it consumes, when it has one
type selector struct {
	expr jp.Expr
	key  string
}

func compileSelector(path string) (selector, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return selector{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "selector %q", path)
	}
	s := selector{expr: x}
	var steps []jp.Frag
	for _, f := range x {
		switch f.(type) {
		case jp.Root, jp.Bracket:
		default:
			steps = append(steps, f)
		}
	}
	if len(steps) == 1 {
		if child, ok := steps[0].(jp.Child); ok {
			s.key = string(child)
		}
	}
	return s, nil
}

func (s selector) str(item map[string]any) (string, bool) {
	for _, v := range s.expr.Get(item) {
		switch t := v.(type) {
		case string:
			return t, true
		case json.Number:
			return t.String(), true
		}
	}
	return "", false
}

// firstString accepts a string or an array whose first element is a string (JSON-LD @type)
func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// decodePage turns a page document into entries
func decodePage(uri string, b []byte, idSel, versionSel selector) ([]domain.CatalogEntry, error) {
	var doc pageDoc
	if err := decodeJSON(b, &doc); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeParse, "page %s", uri)
	}

	out := make([]domain.CatalogEntry, 0, len(doc.Items))
	for i, item := range doc.Items {
		where := fmt.Sprintf("page %s item %d", uri, i)

		e := domain.CatalogEntry{EntryType: firstString(item["@type"])}
		e.ResourceURI, _ = item["@id"].(string)
		e.CommitID, _ = item["commitId"].(string)
		e.EntityID, _ = idSel.str(item)
		e.EntityVersion, _ = versionSel.str(item)

		if raw, ok := item["commitTimeStamp"].(string); ok {
			ts, err := ParseTimestamp(raw)
			if err != nil {
				return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeParse, "%s", where), "commitTimeStamp")
			}
			e.CommitTimestamp = ts
		}
		if err := check(e, where); err != nil {
			return nil, err
		}

		payload := make(map[string]any, len(item))
		for k, v := range item {
			payload[k] = v
		}
		for _, k := range reserved {
			delete(payload, k)
		}
		for _, k := range []string{idSel.key, versionSel.key} {
			if k != "" {
				delete(payload, k)
			}
		}
		if len(payload) > 0 {
			e.Payload = payload
		}
		out = append(out, e)
	}
	return out, nil
}
