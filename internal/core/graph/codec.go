package graph

import (
	"bytes"
	"encoding/json"
	"slices"

	perr "ngmeta/internal/platform/errors"
)

// Document is the persisted form of a derived document
// Summary fields are derived from Graph on encode and ignored on decode
type Document struct {
	ID       string       `json:"@id"`
	EntityID string       `json:"id,omitempty"`
	Versions []string     `json:"versions"`
	Count    int          `json:"count"`
	Triples  int          `json:"triples"`
	Graph    []WireTriple `json:"graph"`
}

// WireTriple is one statement in the persisted graph
type WireTriple struct {
	S        string `json:"s"`
	P        string `json:"p"`
	O        string `json:"o"`
	Literal  bool   `json:"literal,omitempty"`
	Datatype string `json:"type,omitempty"`
}

// ContentType of encoded documents
const ContentType = "application/json"

// Summarize builds the document for uri from g
func Summarize(uri string, g Graph) Document {
	doc := Document{ID: uri, Versions: []string{}, Graph: make([]WireTriple, 0, g.Len())}

	for _, o := range g.Objects(uri, PredID) {
		if o.Kind == Literal {
			doc.EntityID = o.Value
			break
		}
	}
	seen := map[string]struct{}{}
	for _, item := range g.Objects(uri, PredItems) {
		for _, v := range g.Objects(item.Value, PredVersion) {
			if _, dup := seen[v.Value]; !dup {
				seen[v.Value] = struct{}{}
				doc.Versions = append(doc.Versions, v.Value)
			}
		}
	}
	slices.Sort(doc.Versions)
	doc.Count = len(doc.Versions)

	for _, t := range g.Sorted() {
		doc.Graph = append(doc.Graph, WireTriple{
			S:        t.Subject,
			P:        t.Predicate,
			O:        t.Object.Value,
			Literal:  t.Object.Kind == Literal,
			Datatype: t.Object.Datatype,
		})
	}
	doc.Triples = len(doc.Graph)
	return doc
}

// Encode serializes g as the canonical document for uri
// Equal graphs always encode to identical bytes
func Encode(uri string, g Graph) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Summarize(uri, g)); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeParse, "encode %s", uri)
	}
	return buf.Bytes(), nil
}

// Decode parses a stored document back into its graph
func Decode(b []byte) (Graph, error) {
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return Graph{}, perr.Wrap(err, perr.ErrorCodeParse, "decode document")
	}
	if doc.ID == "" {
		return Graph{}, perr.WithField(perr.Parsef("document has no @id"), "@id")
	}
	g := New()
	for i, w := range doc.Graph {
		if w.S == "" || w.P == "" {
			return Graph{}, perr.WithField(perr.Parsef("document %s: triple %d has empty subject or predicate", doc.ID, i), "graph")
		}
		t := Triple{Subject: w.S, Predicate: w.P, Object: Term{Value: w.O, Datatype: w.Datatype}}
		if w.Literal {
			t.Object.Kind = Literal
		}
		g.Add(t)
	}
	return g, nil
}
