package module

import (
	"context"
	"testing"
	"time"

	"ngmeta/internal/adapters/blob"
	"ngmeta/internal/core/graph"
	"ngmeta/internal/modkit"
	"ngmeta/internal/platform/config"
	perr "ngmeta/internal/platform/errors"
	cdomain "ngmeta/internal/services/collector/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const base = "https://store.example/"

func deps(store blob.Storage) modkit.Deps {
	d := modkit.FromStore(nil, config.New())
	d.Reg = prometheus.NewRegistry()
	d.Blob = store
	return d
}

func TestFromConfig(t *testing.T) {
	o := FromConfig(config.New())
	if o.Namespace != "registration" || o.FetchDetails || o.Pipeline.MaxAggregate != 1000 {
		t.Fatalf("defaults = %+v", o)
	}
	t.Setenv("NGMETA_RESOLVER_NAMESPACE", "reg2")
	t.Setenv("NGMETA_RESOLVER_DELETE_TYPES", "Gone, Removed")
	t.Setenv("NGMETA_RESOLVER_WORKERS", "2")
	o = FromConfig(config.New())
	if o.Namespace != "reg2" || len(o.DeleteTypes) != 2 || o.DeleteTypes[1] != "Removed" || o.Pipeline.MergeWorkers != 2 {
		t.Fatalf("env = %+v", o)
	}
}

func TestNewRequiresStorage(t *testing.T) {
	if _, err := New(deps(nil)); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestModuleMergesBatches(t *testing.T) {
	store := blob.NewMemory(base)
	m, err := New(deps(store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	defer func() {
		if err := m.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}()

	proc, ok := modkit.PortsOf[cdomain.BatchProcessor](m)
	if !ok || proc != m.Processor() {
		t.Fatalf("processor port missing")
	}
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := proc.ProcessBatch(ctx, []cdomain.CatalogEntry{{
		ResourceURI:     "https://feed.example/data/a.1.0.0.json",
		EntryType:       "nuget:PackageDetails",
		CommitID:        "c1",
		CommitTimestamp: ts,
		EntityID:        "A",
		EntityVersion:   "1.0.0",
	}})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if res.Items != 1 || res.Created != 1 {
		t.Fatalf("result = %+v", res)
	}

	b, ok, err := store.Load(ctx, base+"registration/a.json")
	if err != nil || !ok {
		t.Fatalf("document not saved: ok=%v err=%v", ok, err)
	}
	g, err := graph.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !g.Has(graph.Triple{Subject: base + "registration/a.json", Predicate: graph.PredID, Object: graph.Lit("A")}) {
		t.Fatalf("id triple missing: %v", g.Sorted())
	}
}
