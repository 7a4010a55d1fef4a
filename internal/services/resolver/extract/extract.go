// Package extract turns catalog entries into graph fragments for resolver documents
//
// Extraction is pure: the same entry always yields the same fragment, so re-delivered
// entries merge to the same document.
package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ngmeta/internal/core/graph"
	"ngmeta/internal/core/identity"
	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/services/collector/domain"
	rdomain "ngmeta/internal/services/resolver/domain"
)

// URIResolver joins path parts under the storage base address
type URIResolver interface {
	ResolveURI(parts ...string) string
}

// Extractor names documents under one namespace and builds their fragments
type Extractor struct {
	uris        URIResolver
	namespace   string
	deleteTypes []string
}

// New returns an extractor; empty deleteTypes means DefaultDeleteTypes
func New(uris URIResolver, namespace string, deleteTypes []string) *Extractor {
	if uris == nil {
		panic("extract: New requires a URIResolver")
	}
	if len(deleteTypes) == 0 {
		deleteTypes = rdomain.DefaultDeleteTypes
	}
	return &Extractor{uris: uris, namespace: strings.Trim(namespace, "/"), deleteTypes: deleteTypes}
}

// Target is the document key of an entity id
func Target(entityID string) string { return identity.Normalize(entityID) }

// DocumentURI is the URI of the resolver document for target
func (x *Extractor) DocumentURI(target string) string {
	return x.uris.ResolveURI(x.namespace, target+".json")
}

// VersionURI is the node of one version inside the document for target
func (x *Extractor) VersionURI(target, version string) string {
	return x.uris.ResolveURI(x.namespace, target, identity.NormalizeVersion(version)+".json")
}

// IsDelete reports whether e tombstones its version
func (x *Extractor) IsDelete(e domain.CatalogEntry) bool {
	return domain.IsDeleteType(e.EntryType, x.deleteTypes)
}

// Extract returns the document URI e changes and the fragment describing the change
//
// A details entry only asserts, so merging is a plain union and delivery order does not matter.
// A delete entry is the one tombstone: it drops the version node and retracts the link.
func (x *Extractor) Extract(e domain.CatalogEntry) (string, graph.Fragment, error) {
	target := Target(e.EntityID)
	if target == "" {
		return "", graph.Fragment{}, perr.WithField(perr.Parsef("entry %s has no entity id", e.ResourceURI), "id")
	}
	if identity.NormalizeVersion(e.EntityVersion) == "" {
		return "", graph.Fragment{}, perr.WithField(perr.Parsef("entry %s has no version", e.ResourceURI), "version")
	}
	doc := x.DocumentURI(target)
	node := x.VersionURI(target, e.EntityVersion)
	edge := graph.Triple{Subject: doc, Predicate: graph.PredItems, Object: graph.Ref(node)}

	f := graph.Fragment{Target: target}
	if x.IsDelete(e) {
		f.DropSubject(node)
		f.Retract.Add(edge)
		return doc, f, nil
	}

	add := func(s, p string, o graph.Term) { f.Assert.Add(graph.Triple{Subject: s, Predicate: p, Object: o}) }
	add(doc, graph.PredType, graph.Ref(graph.TypeRegistration))
	add(doc, graph.PredID, graph.Lit(e.EntityID))
	f.Assert.Add(edge)

	if e.EntryType != "" {
		add(node, graph.PredType, graph.Ref(e.EntryType))
	}
	add(node, graph.PredVersion, graph.Lit(e.EntityVersion))
	add(node, graph.PredCatalogEntry, graph.Ref(e.ResourceURI))
	add(node, graph.PredCommitID, graph.Lit(e.CommitID))
	add(node, graph.PredCommitTimeStamp, graph.Typed(e.CommitTimestamp.UTC().Format(time.RFC3339Nano), "dateTime"))

	for _, t := range Literals(node, "", e.Payload) {
		f.Assert.Add(t)
	}
	return doc, f, nil
}

// Literals flattens payload into literal triples about subject
// Nested objects use dotted predicates; arrays yield one triple per scalar element
// Keys starting with '@' are skipped
func Literals(subject, prefix string, payload map[string]any) []graph.Triple {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		if !strings.HasPrefix(k, "@") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []graph.Triple
	var walk func(pred string, v any)
	walk = func(pred string, v any) {
		switch x := v.(type) {
		case nil:
		case map[string]any:
			out = append(out, Literals(subject, pred, x)...)
		case []any:
			for _, el := range x {
				walk(pred, el)
			}
		default:
			out = append(out, graph.Triple{Subject: subject, Predicate: pred, Object: scalar(x)})
		}
	}
	for _, k := range keys {
		pred := k
		if prefix != "" {
			pred = prefix + "." + k
		}
		walk(pred, payload[k])
	}
	return out
}

func scalar(v any) graph.Term {
	switch x := v.(type) {
	case string:
		return graph.Lit(x)
	case bool:
		return graph.Typed(strconv.FormatBool(x), "boolean")
	case json.Number:
		return graph.Typed(x.String(), "number")
	case float64:
		return graph.Typed(strconv.FormatFloat(x, 'f', -1, 64), "number")
	case int:
		return graph.Typed(strconv.Itoa(x), "number")
	case int64:
		return graph.Typed(strconv.FormatInt(x, 10), "number")
	default:
		return graph.Lit(fmt.Sprint(x))
	}
}
