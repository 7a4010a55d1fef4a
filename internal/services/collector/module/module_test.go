package module

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ngmeta/internal/modkit"
	"ngmeta/internal/platform/config"
	"ngmeta/internal/services/collector/domain"

	"github.com/prometheus/client_golang/prometheus"
)

type sinkRec struct {
	mu   sync.Mutex
	runs []domain.Status
}

func (s *sinkRec) Record(_ context.Context, _ domain.Result, st domain.Status, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, st)
	return nil
}

func feed(t *testing.T) string {
	t.Helper()
	var base string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.json":
			fmt.Fprintf(w, `{"items":[{"@id":"%s/page0.json","commitTimeStamp":"2024-01-02T00:00:00Z"}]}`, base)
		case "/page0.json":
			fmt.Fprintf(w, `{"items":[%s,%s,%s]}`,
				item(base, "A", "1.0.0", "c1", "2024-01-01T00:00:00Z"),
				item(base, "B", "1.0.0", "c1", "2024-01-01T00:00:00Z"),
				item(base, "A", "2.0.0", "c2", "2024-01-02T00:00:00Z"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	base = srv.URL
	return srv.URL + "/index.json"
}

func item(base, id, version, commit, ts string) string {
	return fmt.Sprintf(`{"@id":"%s/data/%s.%s.json","@type":"nuget:PackageDetails","commitId":"%s","commitTimeStamp":"%s","nuget:id":"%s","nuget:version":"%s"}`,
		base, id, version, commit, ts, id, version)
}

func deps() modkit.Deps {
	d := modkit.FromStore(nil, config.New())
	d.Reg = prometheus.NewRegistry()
	return d
}

func TestFromConfigDefaults(t *testing.T) {
	o := FromConfig(config.New(), "catalog2count")
	if o.IndexURI != DefaultIndexURI || o.Front != "file:catalog2count.cursor.json" || o.Back != "max" {
		t.Fatalf("defaults = %+v", o)
	}
	if o.Interval != 30*time.Second || o.EnableLeases {
		t.Fatalf("defaults = %+v", o)
	}

	t.Setenv("NGMETA_COLLECTOR_BATCH_SIZE", "25")
	t.Setenv("NGMETA_CURSOR_FRONT", "pg:front")
	o = FromConfig(config.New(), "x")
	if o.BatchSize != 25 || o.Front != "pg:front" {
		t.Fatalf("env override = %+v", o)
	}
}

func TestModuleRunsCollectorToCompletion(t *testing.T) {
	t.Setenv("NGMETA_COLLECTOR_INDEX", feed(t))
	t.Setenv("NGMETA_CURSOR_FRONT", "memory:")
	t.Setenv("NGMETA_CURSOR_BACK", "max")
	t.Setenv("NGMETA_FETCH_RETRIES", "-1")

	var mu sync.Mutex
	var seen int
	proc := domain.BatchProcessorFunc(func(_ context.Context, items []domain.CatalogEntry) (domain.BatchResult, error) {
		mu.Lock()
		seen += len(items)
		mu.Unlock()
		return domain.BatchResult{Items: len(items)}, nil
	})
	sink := &sinkRec{}

	m, err := New(context.Background(), deps(), proc, modkit.WithName("catalog2test"), modkit.WithPorts[domain.RunSink](sink))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Name() != "catalog2test" {
		t.Fatalf("name = %q", m.Name())
	}
	ports, ok := m.Ports().(Ports)
	if !ok || ports.Reader == nil {
		t.Fatalf("ports = %#v", m.Ports())
	}

	sum, err := m.Loop(context.Background(), time.Millisecond, true)
	if err != nil {
		t.Fatalf("Loop: %v", err)
	}
	if seen != 3 || sum.Items != 3 || sum.Commits != 2 {
		t.Fatalf("seen=%d summary=%+v", seen, sum)
	}
	pos, err := ports.Front.Load(context.Background())
	if err != nil {
		t.Fatalf("front: %v", err)
	}
	if !pos.Value.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("front = %v", pos.Value)
	}
	if len(sink.runs) != 2 || sink.runs[0] != domain.StatusOK {
		t.Fatalf("sink runs = %v", sink.runs)
	}
}

func TestModuleRejectsBadCursorSpecs(t *testing.T) {
	cases := map[string][2]string{
		"read only front": {"max", "max"},
		"pg without db":   {"pg:front", "max"},
		"unknown back":    {"memory:", "nope:x"},
	}
	proc := domain.BatchProcessorFunc(func(context.Context, []domain.CatalogEntry) (domain.BatchResult, error) {
		return domain.BatchResult{}, nil
	})
	for name, specs := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("NGMETA_CURSOR_FRONT", specs[0])
			t.Setenv("NGMETA_CURSOR_BACK", specs[1])
			if _, err := New(context.Background(), deps(), proc); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
