package graph

// Fragment is the change one feed item makes to one derived document
//
// Applying a fragment removes Retract and every triple whose subject is in Drop,
// then adds Assert. A fragment with only Assert is a plain union.
type Fragment struct {
	Target  string
	Assert  Graph
	Retract Graph
	Drop    map[string]struct{}
}

// Assertion returns an assert-only fragment for target
func Assertion(target string, g Graph) Fragment {
	return Fragment{Target: target, Assert: g}
}

// DropSubject marks every triple about subject for removal
func (f *Fragment) DropSubject(subject string) {
	if f.Drop == nil {
		f.Drop = make(map[string]struct{})
	}
	f.Drop[subject] = struct{}{}
}

// removes reports whether applying f deletes t
func (f Fragment) removes(t Triple) bool {
	if _, ok := f.Drop[t.Subject]; ok {
		return true
	}
	return f.Retract.Has(t)
}

// Apply returns the result of applying f to g; g is not modified
func (f Fragment) Apply(g Graph) Graph {
	out := Graph{set: make(map[Triple]struct{}, g.Len()+f.Assert.Len())}
	for t := range g.set {
		if !f.removes(t) {
			out.set[t] = struct{}{}
		}
	}
	for t := range f.Assert.set {
		out.set[t] = struct{}{}
	}
	return out
}

// Then composes f followed by next into a single fragment with the same effect
// (X - R1 ∪ A1) - R2 ∪ A2 == X - (R1 ∪ R2) ∪ ((A1 - R2) ∪ A2)
func (f Fragment) Then(next Fragment) Fragment {
	out := Fragment{Target: f.Target}
	if out.Target == "" {
		out.Target = next.Target
	}
	for t := range f.Assert.set {
		if !next.removes(t) {
			out.Assert.Add(t)
		}
	}
	for t := range next.Assert.set {
		out.Assert.Add(t)
	}
	for t := range f.Retract.set {
		out.Retract.Add(t)
	}
	for t := range next.Retract.set {
		out.Retract.Add(t)
	}
	for s := range f.Drop {
		out.DropSubject(s)
	}
	for s := range next.Drop {
		out.DropSubject(s)
	}
	return out
}

// Size is the number of statements the fragment carries
func (f Fragment) Size() int {
	return f.Assert.Len() + f.Retract.Len() + len(f.Drop)
}
