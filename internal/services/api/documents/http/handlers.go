// Package http serves derived documents straight from storage
package http

import (
	"net/http"
	"strings"

	"ngmeta/internal/adapters/blob"
	"ngmeta/internal/core/graph"
	perr "ngmeta/internal/platform/errors"
	phttp "ngmeta/internal/platform/net/http"
	"ngmeta/internal/services/resolver/extract"
)

// Deps are the handler dependencies
type Deps struct {
	Storage    blob.Storage
	Namespaces []string
}

type handlers struct {
	store blob.Storage
	byNS  map[string]*extract.Extractor
}

// Register mounts the document routes
// Static routes mounted next to these take precedence over a namespace of the same name
func Register(r phttp.Router, d Deps) {
	h := &handlers{store: d.Storage, byNS: make(map[string]*extract.Extractor, len(d.Namespaces))}
	for _, ns := range d.Namespaces {
		h.byNS[ns] = extract.New(d.Storage, ns, nil)
	}
	r.Get("/{namespace}/{id}", phttp.Handle(h.document))
	r.Head("/{namespace}/{id}", phttp.Handle(h.document))
	phttp.GetJSON(r, "/{namespace}/{id}/versions/{version}", h.version)
}

// VersionResponse is the statements about one version node
type VersionResponse struct {
	Document   string             `json:"document"`
	Node       string             `json:"node"`
	Version    string             `json:"version"`
	Properties []graph.WireTriple `json:"properties"`
}

func (h *handlers) extractor(r *http.Request) (*extract.Extractor, string, error) {
	ns := phttp.URLParam(r, "namespace")
	x, ok := h.byNS[ns]
	if !ok {
		return nil, "", perr.NotFoundf("unknown namespace %q", ns)
	}
	target := extract.Target(strings.TrimSuffix(phttp.URLParam(r, "id"), ".json"))
	if target == "" {
		return nil, "", perr.WithField(perr.InvalidArgf("empty id"), "id")
	}
	return x, target, nil
}

func (h *handlers) load(r *http.Request, uri string) ([]byte, error) {
	b, ok, err := h.store.Load(r.Context(), uri)
	if err != nil {
		if perr.CodeOf(err) == perr.ErrorCodeUnknown {
			err = perr.Wrapf(err, perr.ErrorCodeStorage, "load %s", uri)
		}
		return nil, err
	}
	if !ok {
		return nil, perr.NotFoundf("no document at %s", uri)
	}
	return b, nil
}

func (h *handlers) document(r *http.Request) phttp.Response {
	x, target, err := h.extractor(r)
	if err != nil {
		return phttp.Error(err)
	}
	b, err := h.load(r, x.DocumentURI(target))
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.Raw(graph.ContentType, b)
}

func (h *handlers) version(r *http.Request) (any, error) {
	x, target, err := h.extractor(r)
	if err != nil {
		return nil, err
	}
	uri := x.DocumentURI(target)
	b, err := h.load(r, uri)
	if err != nil {
		return nil, err
	}
	g, err := graph.Decode(b)
	if err != nil {
		return nil, err
	}

	version := phttp.URLParam(r, "version")
	node := x.VersionURI(target, version)
	if !g.Has(graph.Triple{Subject: uri, Predicate: graph.PredItems, Object: graph.Ref(node)}) {
		return nil, perr.NotFoundf("%s has no version %s", target, version)
	}
	props := []graph.WireTriple{}
	for _, t := range graph.Summarize(uri, g).Graph {
		if t.S == node {
			props = append(props, t)
		}
	}
	return VersionResponse{Document: uri, Node: node, Version: version, Properties: props}, nil
}
