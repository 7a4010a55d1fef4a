// Package http serves collector cursor positions and run history
package http

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	perr "ngmeta/internal/platform/errors"
	phttp "ngmeta/internal/platform/net/http"
	"ngmeta/internal/services/collector/domain"
	"ngmeta/internal/services/stats"
)

// RunLister reads recorded runs, newest first
type RunLister interface {
	Recent(ctx context.Context, collector string, limit int) ([]stats.Run, error)
}

// Deps are the handler dependencies
type Deps struct {
	Cursors map[string]domain.ReadCursor
	Runs    RunLister
}

type handlers struct {
	deps Deps
}

// Register mounts the cursor and run routes
func Register(r phttp.Router, d Deps) {
	h := &handlers{deps: d}
	phttp.GetJSON(r, "/cursors", h.list)
	phttp.GetJSON(r, "/cursors/{name}", h.one)
	phttp.GetJSON(r, "/runs", h.runs)
}

// CursorResponse is one cursor position
type CursorResponse struct {
	Name     string         `json:"name"`
	Value    string         `json:"value"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (h *handlers) list(r *http.Request) (any, error) {
	names := make([]string, 0, len(h.deps.Cursors))
	for n := range h.deps.Cursors {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]CursorResponse, 0, len(names))
	for _, n := range names {
		c, err := h.load(r, n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (h *handlers) one(r *http.Request) (any, error) {
	return h.load(r, phttp.URLParam(r, "name"))
}

func (h *handlers) load(r *http.Request, name string) (CursorResponse, error) {
	c, ok := h.deps.Cursors[name]
	if !ok {
		return CursorResponse{}, perr.NotFoundf("no cursor named %q", name)
	}
	p, err := c.Load(r.Context())
	if err != nil {
		return CursorResponse{}, perr.WithField(err, name)
	}
	return CursorResponse{Name: name, Value: p.Value.UTC().Format(time.RFC3339Nano), Metadata: p.Metadata}, nil
}

func (h *handlers) runs(r *http.Request) (any, error) {
	if h.deps.Runs == nil {
		return nil, perr.NotFoundf("run history is not recorded (SERVICE_CLICKHOUSE_URL)")
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, perr.WithField(perr.InvalidArgf("limit must be a non negative integer"), "limit")
		}
		limit = n
	}
	runs, err := h.deps.Runs.Recent(r.Context(), r.URL.Query().Get("collector"), limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []stats.Run{}
	}
	return runs, nil
}
