package extract

import (
	"encoding/json"
	"testing"
	"time"

	"ngmeta/internal/adapters/blob"
	"ngmeta/internal/core/graph"
	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/testkit"
	"ngmeta/internal/services/collector/domain"
)

const base = "https://store.example/"

func details(id, version string, payload map[string]any) domain.CatalogEntry {
	return domain.CatalogEntry{
		ResourceURI:     "https://feed.example/data/2024.05.01/" + id + "." + version + ".json",
		EntryType:       "nuget:PackageDetails",
		CommitID:        "c-1",
		CommitTimestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		EntityID:        id,
		EntityVersion:   version,
		Payload:         payload,
	}
}

func TestExtractDetails(t *testing.T) {
	x := New(blob.NewMemory(base), "registration", nil)
	e := details("Newtonsoft.Json", "13.0.1", map[string]any{
		"listed":      true,
		"downloads":   json.Number("42"),
		"tags":        []any{"json", "serializer"},
		"authors":     "James",
		"@context":    map[string]any{"ignored": "yes"},
		"deprecation": map[string]any{"reason": "legacy", "alt": map[string]any{"id": "System.Text.Json"}},
		"summary":     nil,
	})

	uri, f, err := x.Extract(e)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if uri != base+"registration/newtonsoft.json.json" {
		t.Fatalf("document uri = %s", uri)
	}
	if f.Target != "newtonsoft.json" {
		t.Fatalf("target = %s", f.Target)
	}
	node := base + "registration/newtonsoft.json/13.0.1.json"
	if len(f.Drop) != 0 || f.Retract.Len() != 0 {
		t.Fatalf("details must only assert: drop=%v retract=%v", f.Drop, f.Retract.Sorted())
	}

	want := []graph.Triple{
		{Subject: uri, Predicate: graph.PredType, Object: graph.Ref(graph.TypeRegistration)},
		{Subject: uri, Predicate: graph.PredID, Object: graph.Lit("Newtonsoft.Json")},
		{Subject: uri, Predicate: graph.PredItems, Object: graph.Ref(node)},
		{Subject: node, Predicate: graph.PredType, Object: graph.Ref("nuget:PackageDetails")},
		{Subject: node, Predicate: graph.PredVersion, Object: graph.Lit("13.0.1")},
		{Subject: node, Predicate: graph.PredCatalogEntry, Object: graph.Ref(e.ResourceURI)},
		{Subject: node, Predicate: graph.PredCommitID, Object: graph.Lit("c-1")},
		{Subject: node, Predicate: graph.PredCommitTimeStamp, Object: graph.Typed("2024-05-01T12:00:00Z", "dateTime")},
		{Subject: node, Predicate: "listed", Object: graph.Typed("true", "boolean")},
		{Subject: node, Predicate: "downloads", Object: graph.Typed("42", "number")},
		{Subject: node, Predicate: "tags", Object: graph.Lit("json")},
		{Subject: node, Predicate: "tags", Object: graph.Lit("serializer")},
		{Subject: node, Predicate: "authors", Object: graph.Lit("James")},
		{Subject: node, Predicate: "deprecation.reason", Object: graph.Lit("legacy")},
		{Subject: node, Predicate: "deprecation.alt.id", Object: graph.Lit("System.Text.Json")},
	}
	for _, tr := range want {
		if !f.Assert.Has(tr) {
			t.Fatalf("missing %v in %v", tr, f.Assert.Sorted())
		}
	}
	if f.Assert.Len() != len(want) {
		t.Fatalf("assert has %d triples, want %d: %v", f.Assert.Len(), len(want), f.Assert.Sorted())
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	x := New(blob.NewMemory(base), "registration", nil)
	e := details("A", "1.0.0", map[string]any{"b": "2", "a": []any{"x", "y"}})
	_, f1, _ := x.Extract(e)
	_, f2, _ := x.Extract(e)
	if !f1.Assert.Equal(f2.Assert) {
		t.Fatalf("extraction is not deterministic")
	}
}

func TestExtractCaseVariantsShareDocument(t *testing.T) {
	x := New(blob.NewMemory(base), "registration", nil)
	u1, _, _ := x.Extract(details("MyLib", "1.0.0", nil))
	u2, _, _ := x.Extract(details("mylib", "1.0.0.0", nil))
	if u1 != u2 {
		t.Fatalf("case variants map to %s and %s", u1, u2)
	}
	if x.VersionURI("mylib", "1.0.0.0") != x.VersionURI("MYLIB", "1.0.0") {
		t.Fatalf("version nodes differ for equivalent versions")
	}
}

func TestExtractDeleteIsTombstone(t *testing.T) {
	x := New(blob.NewMemory(base), "registration", nil)
	e := details("A", "1.0.0", nil)
	e.EntryType = "nuget:PackageDelete"

	uri, del, err := x.Extract(e)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	node := x.VersionURI("a", "1.0.0")
	if del.Assert.Len() != 0 {
		t.Fatalf("delete must not assert anything")
	}
	if !del.Retract.Has(graph.Triple{Subject: uri, Predicate: graph.PredItems, Object: graph.Ref(node)}) {
		t.Fatalf("delete must retract the items edge")
	}

	_, add, _ := x.Extract(details("A", "1.0.0", map[string]any{"title": "A"}))
	doc := add.Apply(graph.Graph{})
	gone := del.Apply(doc)
	for _, tr := range gone.Sorted() {
		if tr.Subject == node || tr.Object.Value == node {
			t.Fatalf("deleted version still referenced: %v", tr)
		}
	}
}

func TestExtractCustomDeleteTypes(t *testing.T) {
	x := New(blob.NewMemory(base), "r", []string{"Tombstone"})
	e := details("A", "1.0.0", nil)
	e.EntryType = "tombstone"
	if !x.IsDelete(e) {
		t.Fatalf("delete types compare case-insensitively")
	}
	e.EntryType = "nuget:PackageDelete"
	if x.IsDelete(e) {
		t.Fatalf("defaults must not apply when delete types are configured")
	}
}

func TestExtractRejectsEmptyIdentity(t *testing.T) {
	x := New(blob.NewMemory(base), "r", nil)
	if _, _, err := x.Extract(details("  ", "1.0.0", nil)); !perr.IsCode(err, perr.ErrorCodeParse) {
		t.Fatalf("empty id err = %v", err)
	}
	if _, _, err := x.Extract(details("A", "", nil)); !perr.IsCode(err, perr.ErrorCodeParse) {
		t.Fatalf("empty version err = %v", err)
	}
}

func TestNewRequiresResolver(t *testing.T) {
	testkit.MustPanic(t, func() { New(nil, "r", nil) })
}
