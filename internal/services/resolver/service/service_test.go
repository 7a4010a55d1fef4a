package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ngmeta/internal/adapters/blob"
	"ngmeta/internal/core/graph"
	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/testkit"
	cdomain "ngmeta/internal/services/collector/domain"
	"ngmeta/internal/services/resolver/domain"
	"ngmeta/internal/services/resolver/extract"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const base = "https://store.example/"

// store wraps blob.Memory with injectable failures and save concurrency tracking
type store struct {
	*blob.Memory
	loadErr  map[string]error
	saveErr  error
	saveWait time.Duration

	inSave  atomic.Int32
	maxSave atomic.Int32
	loads   atomic.Int32
}

func newStore() *store { return &store{Memory: blob.NewMemory(base), loadErr: map[string]error{}} }

func (s *store) Load(ctx context.Context, uri string) ([]byte, bool, error) {
	s.loads.Add(1)
	if err := s.loadErr[uri]; err != nil {
		return nil, false, err
	}
	return s.Memory.Load(ctx, uri)
}

func (s *store) Save(ctx context.Context, contentType, uri string, b []byte) error {
	n := s.inSave.Add(1)
	defer s.inSave.Add(-1)
	for {
		m := s.maxSave.Load()
		if n <= m || s.maxSave.CompareAndSwap(m, n) {
			break
		}
	}
	if s.saveWait > 0 {
		time.Sleep(s.saveWait)
	}
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Memory.Save(ctx, contentType, uri, b)
}

func (s *store) graph(t *testing.T, uri string) graph.Graph {
	t.Helper()
	b, ok, err := s.Memory.Load(context.Background(), uri)
	if err != nil || !ok {
		t.Fatalf("document %s missing: %v", uri, err)
	}
	g, err := graph.Decode(b)
	if err != nil {
		t.Fatalf("decode %s: %v", uri, err)
	}
	return g
}

func lit(s, p, o string) graph.Triple { return graph.Triple{Subject: s, Predicate: p, Object: graph.Lit(o)} }

func TestMergeScenario(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	m := NewMerger(st, nil)
	uri := base + "r/a.json"

	r1, err := m.Merge(ctx, uri, graph.Assertion("a", graph.New(lit("A", "p", "1"))))
	if err != nil || !r1.Created {
		t.Fatalf("first merge = %+v, %v", r1, err)
	}
	r2, err := m.Merge(ctx, uri, graph.Assertion("a", graph.New(lit("A", "p", "1"), lit("A", "q", "2"))))
	if err != nil || r2.Created || r2.Triples != 2 {
		t.Fatalf("second merge = %+v, %v", r2, err)
	}
	want := graph.New(lit("A", "p", "1"), lit("A", "q", "2"))
	if got := st.graph(t, uri); !got.Equal(want) {
		t.Fatalf("document = %v", got.Sorted())
	}
}

func TestMergeIsIdempotentAndAlwaysSaves(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	m := NewMerger(st, nil)
	uri := base + "r/a.json"
	f := graph.Assertion("a", graph.New(lit("A", "p", "1")))

	_, _ = m.Merge(ctx, uri, f)
	first, _, _ := st.Memory.Load(ctx, uri)
	_, _ = m.Merge(ctx, uri, f)
	second, _, _ := st.Memory.Load(ctx, uri)
	if string(first) != string(second) {
		t.Fatalf("re-merge changed the document:\n%s\n%s", first, second)
	}
	if st.Saves() != 2 {
		t.Fatalf("saves = %d, an unchanged merge still saves", st.Saves())
	}
}

func TestMergeLoadErrorIsSoft(t *testing.T) {
	st := newStore()
	uri := base + "r/a.json"
	st.loadErr[uri] = perr.Storagef("bucket unavailable")
	r, err := NewMerger(st, nil).Merge(context.Background(), uri, graph.Assertion("a", graph.New(lit("A", "p", "1"))))
	if err != nil {
		t.Fatalf("load failure must not fail the merge: %v", err)
	}
	if !r.LoadError || !r.Created {
		t.Fatalf("result = %+v", r)
	}
}

func TestMergeCorruptDocumentIsFatal(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	uri := base + "r/a.json"
	_ = st.Memory.Save(ctx, graph.ContentType, uri, []byte(`{"@id":`))
	_, err := NewMerger(st, nil).Merge(ctx, uri, graph.Assertion("a", graph.New(lit("A", "p", "1"))))
	if !perr.IsCode(err, perr.ErrorCodeParse) {
		t.Fatalf("err = %v", err)
	}
}

func TestMergeSaveErrorIsStorage(t *testing.T) {
	st := newStore()
	st.saveErr = errors.New("disk full")
	reg := prometheus.NewRegistry()
	met := NewMetrics(reg)
	_, err := NewMerger(st, met).Merge(context.Background(), base+"r/a.json", graph.Assertion("a", graph.New(lit("A", "p", "1"))))
	if !perr.IsCode(err, perr.ErrorCodeStorage) {
		t.Fatalf("err = %v", err)
	}
	if got := testutil.ToFloat64(met.Documents.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed counter = %v", got)
	}
}

func TestMergeOfExtractedDetailsCommutes(t *testing.T) {
	ctx := context.Background()
	a := entry("Lib", "1.0.0", "nuget:PackageDetails", "c1")
	b := entry("Lib", "1.0.0", "nuget:PackageDetails", "c2")
	b.CommitTimestamp = b.CommitTimestamp.Add(time.Minute)
	b.Payload = map[string]any{"description": "second"}

	apply := func(order ...cdomain.CatalogEntry) string {
		st := newStore()
		x := extract.New(st, "registration", nil)
		m := NewMerger(st, nil)
		var uri string
		for _, e := range order {
			u, f, err := x.Extract(e)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if _, err := m.Merge(ctx, u, f); err != nil {
				t.Fatalf("Merge: %v", err)
			}
			uri = u
		}
		doc, _, _ := st.Memory.Load(ctx, uri)
		return string(doc)
	}

	ab, ba := apply(a, b), apply(b, a)
	if ab != ba {
		t.Fatalf("merge order changed the document:\n%s\n%s", ab, ba)
	}
	testkit.MustContain(t, ab, "c1")
	testkit.MustContain(t, ab, "c2")
}

func TestPipelineFlushIsABarrier(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	st.saveWait = 2 * time.Millisecond
	p := NewPipeline(NewMerger(st, nil), Config{MaxAggregate: 3, MergeWorkers: 4})
	defer p.Close(ctx)

	for i := range 10 {
		uri := fmt.Sprintf("%sr/p%d.json", base, i)
		if err := p.Add(ctx, uri, graph.Assertion(fmt.Sprint(i), graph.New(lit(uri, "p", "1")))); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	res, err := p.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if st.Saves() != 10 || res.Created != 10 || res.Targets != 10 {
		t.Fatalf("after Flush saves=%d result=%+v", st.Saves(), res)
	}
	if st.maxSave.Load() != 1 {
		t.Fatalf("saves overlapped: max concurrent = %d", st.maxSave.Load())
	}
	if p.Pending() != 0 {
		t.Fatalf("pending = %d", p.Pending())
	}
}

func TestPipelineAggregateBound(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		cfg     Config
		adds    int
		triples int
		queued  bool
	}{
		{"below fragment bound", Config{MaxAggregate: 3}, 2, 1, false},
		{"at fragment bound", Config{MaxAggregate: 3}, 3, 1, true},
		{"at triple bound", Config{MaxAggregate: 100, MaxAggregateTriples: 4}, 2, 2, true},
		{"below triple bound", Config{MaxAggregate: 100, MaxAggregateTriples: 5}, 2, 2, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st := newStore()
			p := NewPipeline(NewMerger(st, nil), c.cfg)
			defer p.Close(ctx)
			for i := range c.adds {
				g := graph.New()
				for j := range c.triples {
					g.Add(lit("A", fmt.Sprint(j), fmt.Sprint(i)))
				}
				if err := p.Add(ctx, base+"r/a.json", graph.Assertion("a", g)); err != nil {
					t.Fatal(err)
				}
			}
			if queued := p.Pending() == 0; queued != c.queued {
				t.Fatalf("queued = %v, want %v", queued, c.queued)
			}
			if c.queued {
				testkit.Eventually(t, time.Second, func() bool { return st.Saves() == 1 }, "aggregate merged")
			}
		})
	}
}

func TestPipelineComposesFragmentsPerDocument(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	p := NewPipeline(NewMerger(st, nil), Config{})
	defer p.Close(ctx)
	uri := base + "r/a.json"

	_ = p.Add(ctx, uri, graph.Assertion("a", graph.New(lit("V", "title", "old"))))
	edit := graph.Assertion("a", graph.New(lit("V", "title", "new")))
	edit.DropSubject("V")
	_ = p.Add(ctx, uri, edit)

	res, err := p.Flush(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Saves() != 1 || res.Targets != 1 {
		t.Fatalf("one document expected, saves=%d result=%+v", st.Saves(), res)
	}
	if g := st.graph(t, uri); !g.Equal(graph.New(lit("V", "title", "new"))) {
		t.Fatalf("document = %v", g.Sorted())
	}
}

func TestPipelineFailureIsSticky(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	st.saveErr = errors.New("disk full")
	p := NewPipeline(NewMerger(st, nil), Config{})

	_ = p.Add(ctx, base+"r/a.json", graph.Assertion("a", graph.New(lit("A", "p", "1"))))
	if _, err := p.Flush(ctx); !perr.IsCode(err, perr.ErrorCodeStorage) {
		t.Fatalf("Flush err = %v", err)
	}
	if err := p.Add(ctx, base+"r/b.json", graph.Assertion("b", graph.New(lit("B", "p", "1")))); err == nil {
		t.Fatalf("Add after failure must fail")
	}
	if err := p.Close(ctx); err == nil {
		t.Fatalf("Close must report the failure")
	}
	if err := p.Add(ctx, base+"r/c.json", graph.Fragment{}); err == nil {
		t.Fatalf("Add after Close must fail")
	}
}

type fakeDetails struct {
	docs  map[string]map[string]any
	asked []string
	mu    sync.Mutex
}

func (f *fakeDetails) FetchDocuments(_ context.Context, uris []string) (map[string]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, uris...)
	out := make(map[string]map[string]any, len(uris))
	for _, u := range uris {
		out[u] = f.docs[u]
	}
	return out, nil
}

func entry(id, version, typ, commit string) cdomain.CatalogEntry {
	return cdomain.CatalogEntry{
		ResourceURI:     fmt.Sprintf("https://feed.example/data/%s/%s.%s.json", commit, id, version),
		EntryType:       typ,
		CommitID:        commit,
		CommitTimestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		EntityID:        id,
		EntityVersion:   version,
	}
}

func newProcessor(st *store, details *fakeDetails) (*Processor, *extract.Extractor) {
	x := extract.New(st, "registration", nil)
	var d domain.DetailFetcher
	if details != nil {
		d = details
	}
	return NewProcessor(x, NewPipeline(NewMerger(st, nil), Config{MaxAggregate: 2}), d), x
}

func TestProcessorBatch(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	proc, x := newProcessor(st, nil)
	defer proc.Close(ctx)

	batch := []cdomain.CatalogEntry{
		entry("Lib", "1.0.0", "nuget:PackageDetails", "c1"),
		entry("lib", "2.0.0", "nuget:PackageDetails", "c1"),
		entry("Other", "1.0.0", "nuget:PackageDetails", "c1"),
	}
	res, err := proc.ProcessBatch(ctx, batch)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if res.Items != 3 || res.Before != 3 || res.After != 2 || res.Created != 2 || res.ByType["nuget:PackageDetails"] != 3 {
		t.Fatalf("result = %+v", res)
	}
	doc := graph.Summarize(x.DocumentURI("lib"), st.graph(t, x.DocumentURI("lib")))
	if doc.Count != 2 {
		t.Fatalf("versions = %v", doc.Versions)
	}

	// re-delivery converges to the same bytes
	before, _, _ := st.Memory.Load(ctx, x.DocumentURI("lib"))
	if _, err := proc.ProcessBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}
	after, _, _ := st.Memory.Load(ctx, x.DocumentURI("lib"))
	if string(before) != string(after) {
		t.Fatalf("re-delivery changed the document")
	}

	// delete tombstones one version
	res, err = proc.ProcessBatch(ctx, []cdomain.CatalogEntry{entry("LIB", "1.0.0", "nuget:PackageDelete", "c2")})
	if err != nil || res.Merged != 1 {
		t.Fatalf("delete = %+v, %v", res, err)
	}
	doc = graph.Summarize(x.DocumentURI("lib"), st.graph(t, x.DocumentURI("lib")))
	if doc.Count != 1 || doc.Versions[0] != "2.0.0" {
		t.Fatalf("versions after delete = %v", doc.Versions)
	}
}

func TestProcessorFailedBatchIsNotPersistedOnClose(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	x := extract.New(st, "registration", nil)
	proc := NewProcessor(x, NewPipeline(NewMerger(st, nil), Config{MaxAggregate: 100}), nil)

	good := entry("Good", "1.0.0", "nuget:PackageDetails", "c1")
	bad := entry("", "1.0.0", "nuget:PackageDetails", "c1")
	_, err := proc.ProcessBatch(ctx, []cdomain.CatalogEntry{good, bad})
	if err == nil {
		t.Fatalf("batch with an empty id must fail")
	}
	if _, ok, _ := st.Memory.Load(ctx, x.DocumentURI("good")); ok {
		t.Fatalf("document saved by a failed batch")
	}

	if cerr := proc.Close(ctx); !errors.Is(cerr, err) {
		t.Fatalf("Close = %v, want the batch error %v", cerr, err)
	}
	if _, ok, _ := st.Memory.Load(ctx, x.DocumentURI("good")); ok {
		t.Fatalf("Close persisted fragments of the failed batch")
	}
}

func TestProcessorFetchesDetails(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	add := entry("Lib", "1.0.0", "nuget:PackageDetails", "c1")
	del := entry("Gone", "1.0.0", "nuget:PackageDelete", "c1")
	details := &fakeDetails{docs: map[string]map[string]any{
		add.ResourceURI: {"description": "a library", "commitId": "other"},
	}}
	proc, x := newProcessor(st, details)
	defer proc.Close(ctx)

	if _, err := proc.ProcessBatch(ctx, []cdomain.CatalogEntry{add, add, del}); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(details.asked) != 1 || details.asked[0] != add.ResourceURI {
		t.Fatalf("details fetched for %v", details.asked)
	}
	g := st.graph(t, x.DocumentURI("lib"))
	node := x.VersionURI("lib", "1.0.0")
	if !g.Has(lit(node, "description", "a library")) {
		t.Fatalf("detail field missing: %v", g.Sorted())
	}
	if !g.Has(lit(node, graph.PredCommitID, "c1")) || g.Has(lit(node, graph.PredCommitID, "other")) {
		t.Fatalf("commit id must come from the feed entry")
	}
}

func TestProcessorCrashResumeConverges(t *testing.T) {
	ctx := context.Background()
	g1 := []cdomain.CatalogEntry{entry("A", "1.0.0", "nuget:PackageDetails", "c1")}
	g2 := []cdomain.CatalogEntry{entry("A", "2.0.0", "nuget:PackageDetails", "c2"), entry("B", "1.0.0", "nuget:PackageDetails", "c2")}

	clean := newStore()
	proc, x := newProcessor(clean, nil)
	_, _ = proc.ProcessBatch(ctx, g1)
	_, _ = proc.ProcessBatch(ctx, g2)
	_ = proc.Close(ctx)

	// crash while saving g2, then a fresh process re-delivers g2
	crashed := newStore()
	first, _ := newProcessor(crashed, nil)
	_, _ = first.ProcessBatch(ctx, g1)
	crashed.saveErr = errors.New("killed")
	if _, err := first.ProcessBatch(ctx, g2); err == nil {
		t.Fatalf("expected failure")
	}
	_ = first.Close(ctx)
	crashed.saveErr = nil
	second, _ := newProcessor(crashed, nil)
	if _, err := second.ProcessBatch(ctx, g2); err != nil {
		t.Fatalf("resume: %v", err)
	}
	_ = second.Close(ctx)

	for _, id := range []string{"a", "b"} {
		want, _, _ := clean.Memory.Load(ctx, x.DocumentURI(id))
		got, _, _ := crashed.Memory.Load(ctx, x.DocumentURI(id))
		if string(want) != string(got) {
			t.Fatalf("document %s diverged after resume:\n%s\n%s", id, want, got)
		}
	}
}
