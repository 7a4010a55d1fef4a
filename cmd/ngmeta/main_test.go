package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"ngmeta/internal/platform/testkit"
	"ngmeta/internal/services/collector/service"
	"ngmeta/internal/services/stats"
)

// isolate clears the backend env so bootstrap opens nothing external
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERVICE_PGSQL_URL", "SERVICE_CLICKHOUSE_URL", "SERVICE_REDIS_ADDR",
		"NGMETA_COLLECTOR_INDEX", "NGMETA_COLLECTOR_BATCH_SIZE",
		"NGMETA_CURSOR_FRONT", "NGMETA_CURSOR_BACK",
	} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{resolverCollector: false, countCollector: false, "serve": false, "cursor": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %s", name)
		}
	}
	testkit.MustContain(t, root.Version, "ngmeta")
}

func TestBatchSizeFlagNamesDefault(t *testing.T) {
	fl := newCollectCmd(countCollector).Flags().Lookup("batch-size")
	if fl == nil {
		t.Fatalf("missing --batch-size")
	}
	testkit.MustContain(t, fl.Usage, strconv.Itoa(service.DefaultBatchSize))
	testkit.MustContain(t, fl.Usage, "NGMETA_COLLECTOR_BATCH_SIZE")
}

func TestParsePosition(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-05-01T12:00:00Z", "2024-05-01T12:00:00Z", true},
		{"2024-05-01T12:00:00", "2024-05-01T12:00:00Z", true},
		{"min", "0001-01-01T00:00:00Z", true},
		{"yesterday", "", false},
	}
	for _, c := range cases {
		p, err := parsePosition(c.in)
		if (err == nil) != c.ok {
			t.Fatalf("parsePosition(%q) err = %v", c.in, err)
		}
		if c.ok && p.Value.Format(time.RFC3339) != c.want {
			t.Fatalf("parsePosition(%q) = %s, want %s", c.in, p.Value.Format(time.RFC3339), c.want)
		}
	}
}

func TestCursorSetThenShow(t *testing.T) {
	isolate(t)
	spec := "file:" + filepath.Join(t.TempDir(), "front.json")

	if _, err := execute(t, "cursor", "set", spec, "2024-05-01T12:00:00Z"); err != nil {
		t.Fatalf("cursor set: %v", err)
	}
	out, err := execute(t, "cursor", "show", spec)
	if err != nil {
		t.Fatalf("cursor show: %v", err)
	}
	var v cursorView
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("show output %q: %v", out, err)
	}
	if v.Spec != spec || v.Value != "2024-05-01T12:00:00.0000000Z" {
		t.Fatalf("show = %+v", v)
	}
}

func TestCursorSetRejectsReadOnlySpec(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "cursor", "set", "max", "min"); err == nil {
		t.Fatalf("max is read only")
	}
}

func TestCatalog2CountOnce(t *testing.T) {
	isolate(t)
	var base string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := func(id, version, commit, ts string) string {
			return fmt.Sprintf(`{"@id":"%s/data/%s.%s.json","@type":"nuget:PackageDetails","commitId":"%s","commitTimeStamp":"%s","nuget:id":"%s","nuget:version":"%s"}`,
				base, id, version, commit, ts, id, version)
		}
		switch r.URL.Path {
		case "/index.json":
			fmt.Fprintf(w, `{"items":[{"@id":"%s/page0.json","commitTimeStamp":"2024-01-02T00:00:00Z"}]}`, base)
		case "/page0.json":
			fmt.Fprintf(w, `{"items":[%s,%s,%s]}`,
				entry("A", "1.0.0", "c1", "2024-01-01T00:00:00Z"),
				entry("b", "1.0.0", "c1", "2024-01-01T00:00:00Z"),
				entry("a", "2.0.0", "c2", "2024-01-02T00:00:00Z"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	base = srv.URL

	out, err := execute(t, countCollector, "--once", "--source", srv.URL+"/index.json", "--front", "memory:", "--back", "max")
	if err != nil {
		t.Fatalf("%s: %v", countCollector, err)
	}
	var got stats.Totals
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("totals %q: %v", out, err)
	}
	if got.Items != 3 || got.Distinct != 2 || got.ByType["nuget:PackageDetails"] != 3 {
		t.Fatalf("totals = %+v", got)
	}
}
