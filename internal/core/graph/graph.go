// Package graph holds the triple model behind derived documents
//
// A Graph is a set: adding a triple twice is a no-op, so merging is set union
// and re-delivering the same fragment leaves a document unchanged. Ordering only
// matters on output, where Sorted gives the canonical order used by the codec.
package graph

import (
	"cmp"
	"slices"
)

// Kind tells an IRI object from a literal one
type Kind uint8

const (
	// IRI objects reference another node
	IRI Kind = iota
	// Literal objects carry a value
	Literal
)

// Term is the object position of a triple
type Term struct {
	Value    string
	Kind     Kind
	Datatype string
}

// Ref returns an IRI term
func Ref(iri string) Term { return Term{Value: iri, Kind: IRI} }

// Lit returns an untyped literal term
func Lit(v string) Term { return Term{Value: v, Kind: Literal} }

// Typed returns a literal term with a datatype tag (e.g. "number", "boolean")
func Typed(v, datatype string) Term { return Term{Value: v, Kind: Literal, Datatype: datatype} }

// Triple is a comparable (subject, predicate, object) statement
type Triple struct {
	Subject   string
	Predicate string
	Object    Term
}

// Compare orders triples by subject, predicate, object kind, value, datatype
func Compare(a, b Triple) int {
	if c := cmp.Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Object.Kind, b.Object.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Object.Value, b.Object.Value); c != 0 {
		return c
	}
	return cmp.Compare(a.Object.Datatype, b.Object.Datatype)
}

// Graph is a set of triples; the zero value is an empty graph ready for Add
type Graph struct {
	set map[Triple]struct{}
}

// New returns a graph holding ts
func New(ts ...Triple) Graph {
	g := Graph{set: make(map[Triple]struct{}, len(ts))}
	for _, t := range ts {
		g.set[t] = struct{}{}
	}
	return g
}

// Add inserts t and reports whether it was new
func (g *Graph) Add(t Triple) bool {
	if g.set == nil {
		g.set = make(map[Triple]struct{})
	}
	if _, ok := g.set[t]; ok {
		return false
	}
	g.set[t] = struct{}{}
	return true
}

// Remove deletes t if present
func (g *Graph) Remove(t Triple) {
	delete(g.set, t)
}

// Has reports membership
func (g Graph) Has(t Triple) bool {
	_, ok := g.set[t]
	return ok
}

// Len is the number of distinct triples
func (g Graph) Len() int { return len(g.set) }

// Clone returns an independent copy
func (g Graph) Clone() Graph {
	out := Graph{set: make(map[Triple]struct{}, len(g.set))}
	for t := range g.set {
		out.set[t] = struct{}{}
	}
	return out
}

// Union returns a new graph holding the triples of g and o; neither input changes
func (g Graph) Union(o Graph) Graph {
	out := g.Clone()
	for t := range o.set {
		out.set[t] = struct{}{}
	}
	return out
}

// Equal reports set equality
func (g Graph) Equal(o Graph) bool {
	if g.Len() != o.Len() {
		return false
	}
	for t := range g.set {
		if _, ok := o.set[t]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the triples in canonical order
func (g Graph) Sorted() []Triple {
	out := make([]Triple, 0, len(g.set))
	for t := range g.set {
		out = append(out, t)
	}
	slices.SortFunc(out, Compare)
	return out
}

// Objects returns the objects of (subject, predicate) in canonical order
func (g Graph) Objects(subject, predicate string) []Term {
	var out []Term
	for t := range g.set {
		if t.Subject == subject && t.Predicate == predicate {
			out = append(out, t.Object)
		}
	}
	slices.SortFunc(out, func(a, b Term) int {
		return Compare(Triple{Object: a}, Triple{Object: b})
	})
	return out
}

// Subjects returns the distinct subjects in sorted order
func (g Graph) Subjects() []string {
	seen := make(map[string]struct{})
	for t := range g.set {
		seen[t.Subject] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
