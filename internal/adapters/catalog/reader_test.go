package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	perr "ngmeta/internal/platform/errors"
)

// feed serves an index at /index.json and pages at /page{n}.json
type feed struct {
	pages    map[string]string // path -> body
	index    string
	failPath string
	hits     atomic.Int64
}

func (f *feed) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if r.URL.Path == f.failPath {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Path == "/index.json" {
			_, _ = w.Write([]byte(f.index))
			return
		}
		body, ok := f.pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	})
}

func item(base, id, version, commit, ts string) string {
	return fmt.Sprintf(`{"@id":"%s/data/%s.%s.json","@type":"nuget:PackageDetails","commitId":"%s","commitTimeStamp":"%s","nuget:id":"%s","nuget:version":"%s","description":"d"}`,
		base, strings.ToLower(id), version, commit, ts, id, version)
}

func newFeed(t *testing.T) (*feed, *httptest.Server) {
	t.Helper()
	f := &feed{pages: map[string]string{}}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	b := srv.URL
	f.pages["/page0.json"] = `{"items":[` + item(b, "A", "1.0.0", "c1", "2020-01-01T00:00:01Z") + `,` + item(b, "B", "1.0.0", "c1", "2020-01-01T00:00:01Z") + `]}`
	f.pages["/page1.json"] = `{"items":[` + item(b, "A", "2.0.0", "c2", "2020-01-02T00:00:00.1234567") + `]}`
	f.index = fmt.Sprintf(`{"items":[{"@id":"%s/page0.json","commitTimeStamp":"2020-01-01T00:00:01Z"},{"@id":"%s/page1.json","commitTimeStamp":"2020-01-02T00:00:00.1234567Z"}]}`, b, b)
	return f, srv
}

func newReader(t *testing.T, o ReaderOptions) *Reader {
	t.Helper()
	r, err := NewReader(NewClient(Options{MaxRetries: -1}), o)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func TestFetchEntriesFlattensAllPages(t *testing.T) {
	_, srv := newFeed(t)
	r := newReader(t, ReaderOptions{})

	entries, err := r.FetchEntries(context.Background(), srv.URL+"/index.json")
	if err != nil {
		t.Fatalf("FetchEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ResourceURI < entries[j].ResourceURI })

	e := entries[0]
	if e.EntityID != "A" || e.EntityVersion != "1.0.0" || e.CommitID != "c1" || e.EntryType != "nuget:PackageDetails" {
		t.Fatalf("entry mismatch: %+v", e)
	}
	if !e.CommitTimestamp.Equal(time.Date(2020, 1, 1, 0, 0, 1, 0, time.UTC)) {
		t.Fatalf("timestamp = %v", e.CommitTimestamp)
	}
	if _, ok := e.Payload["nuget:id"]; ok {
		t.Fatalf("selector key should not be kept in payload")
	}
	if _, ok := e.Payload["@id"]; ok {
		t.Fatalf("reserved key should not be kept in payload")
	}
	if e.Payload["description"] != "d" {
		t.Fatalf("payload lost: %v", e.Payload)
	}

	// zone-less timestamps are UTC
	want := time.Date(2020, 1, 2, 0, 0, 0, 123456700, time.UTC)
	if !entries[1].CommitTimestamp.Equal(want) {
		t.Fatalf("zone-less timestamp = %v, want %v", entries[1].CommitTimestamp, want)
	}
}

func TestFetchEntriesSinceSkipsOldPages(t *testing.T) {
	f, srv := newFeed(t)
	r := newReader(t, ReaderOptions{})

	since := time.Date(2020, 1, 1, 0, 0, 1, 0, time.UTC)
	entries, err := r.FetchEntriesSince(context.Background(), srv.URL+"/index.json", since)
	if err != nil {
		t.Fatalf("FetchEntriesSince: %v", err)
	}
	if len(entries) != 1 || entries[0].CommitID != "c2" {
		t.Fatalf("entries = %+v", entries)
	}
	if f.hits.Load() != 2 {
		t.Fatalf("requests = %d, want index + one page", f.hits.Load())
	}
}

func TestFetchEntriesFailsFast(t *testing.T) {
	f, srv := newFeed(t)
	f.failPath = "/page1.json"
	r := newReader(t, ReaderOptions{Concurrency: 1})

	entries, err := r.FetchEntries(context.Background(), srv.URL+"/index.json")
	if err == nil {
		t.Fatalf("expected error, got %d entries", len(entries))
	}
	if entries != nil {
		t.Fatalf("partial results must not be returned")
	}
	if !perr.IsCode(err, perr.ErrorCodeNetwork) {
		t.Fatalf("want network error, got %v", err)
	}
}

func TestFetchEntriesInvalidItemIsParseError(t *testing.T) {
	f, srv := newFeed(t)
	f.pages["/page1.json"] = `{"items":[{"@id":"not a url","@type":"x","commitId":"c","commitTimeStamp":"2020-01-02T00:00:00Z","nuget:id":"A","nuget:version":"1"}]}`
	r := newReader(t, ReaderOptions{})

	_, err := r.FetchEntries(context.Background(), srv.URL+"/index.json")
	if !perr.IsCode(err, perr.ErrorCodeParse) {
		t.Fatalf("want parse error, got %v", err)
	}
	if e, _ := perr.As(err); e.Field() != "@id" {
		t.Fatalf("field = %q, want @id", e.Field())
	}
}

func TestFetchEntriesMalformedPage(t *testing.T) {
	f, srv := newFeed(t)
	f.pages["/page0.json"] = `{"items":[`
	r := newReader(t, ReaderOptions{})

	if _, err := r.FetchEntries(context.Background(), srv.URL+"/index.json"); !perr.IsCode(err, perr.ErrorCodeParse) {
		t.Fatalf("want parse error, got %v", err)
	}
}

func TestCustomSelectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		switch r.URL.Path {
		case "/index.json":
			fmt.Fprintf(w, `{"items":[{"@id":"%s/p.json","commitTimeStamp":"2021-05-05T00:00:00Z"}]}`, base)
		default:
			fmt.Fprintf(w, `{"items":[{"@id":"%s/i.json","@type":["Details"],"commitId":"c","commitTimeStamp":"2021-05-05T00:00:00Z","pkg":{"name":"Z","ver":3}}]}`, base)
		}
	}))
	defer srv.Close()

	r := newReader(t, ReaderOptions{IDSelector: "$.pkg.name", VersionSelector: "$.pkg.ver"})
	entries, err := r.FetchEntries(context.Background(), srv.URL+"/index.json")
	if err != nil {
		t.Fatalf("FetchEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].EntityID != "Z" || entries[0].EntityVersion != "3" || entries[0].EntryType != "Details" {
		t.Fatalf("entries = %+v", entries)
	}
	if _, ok := entries[0].Payload["pkg"]; !ok {
		t.Fatalf("nested selector source should stay in payload")
	}
}

func TestBadSelector(t *testing.T) {
	if _, err := NewReader(NewClient(Options{}), ReaderOptions{IDSelector: "$[[["}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestFetchDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"path":%q,"n":12345678901234567890}`, r.URL.Path)
	}))
	defer srv.Close()

	r := newReader(t, ReaderOptions{Concurrency: 2})
	uris := []string{srv.URL + "/a.json", srv.URL + "/b.json", srv.URL + "/c.json"}
	docs, err := r.FetchDocuments(context.Background(), uris)
	if err != nil {
		t.Fatalf("FetchDocuments: %v", err)
	}
	if len(docs) != 3 || docs[uris[1]]["path"] != "/b.json" {
		t.Fatalf("docs = %v", docs)
	}
	if fmt.Sprint(docs[uris[0]]["n"]) != "12345678901234567890" {
		t.Fatalf("large numbers must survive decoding, got %v", docs[uris[0]]["n"])
	}
}

func TestParseTimestampTruncatesBelowPrecision(t *testing.T) {
	cases := map[string]time.Time{
		"2024-05-01T12:00:01.000000123Z": time.Date(2024, 5, 1, 12, 0, 1, 100, time.UTC),
		"2024-05-01T12:00:01.000000199Z": time.Date(2024, 5, 1, 12, 0, 1, 100, time.UTC),
		"2024-05-01T12:00:01.1234567":    time.Date(2024, 5, 1, 12, 0, 1, 123456700, time.UTC),
		"2024-05-01T14:00:01+02:00":      time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", in, err)
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
}
