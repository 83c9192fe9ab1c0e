package rdf

import "strings"

// Triple is a single subject/predicate/object statement.
type Triple struct {
	Subject   Term `json:"subject"`
	Predicate Term `json:"predicate"`
	Object    Term `json:"object"`
}

// NewTriple builds a triple.
func NewTriple(s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// NT renders the triple as one N-Triples statement, terminating dot included.
func (t Triple) NT() string {
	return t.Subject.NT() + " " + t.Predicate.NT() + " " + t.Object.NT() + " ."
}

// Pattern selects triples. A nil field matches any value.
type Pattern struct {
	Subject   *Term
	Predicate *Term
	Object    *Term
}

// Bind returns a pointer to a copy of t, for building patterns inline.
func Bind(t Term) *Term {
	return &t
}

// Exactly returns the fully bound pattern for t.
func Exactly(t Triple) Pattern {
	return Pattern{Subject: Bind(t.Subject), Predicate: Bind(t.Predicate), Object: Bind(t.Object)}
}

// Matches reports whether t satisfies the pattern.
func (p Pattern) Matches(t Triple) bool {
	if p.Subject != nil && *p.Subject != t.Subject {
		return false
	}
	if p.Predicate != nil && *p.Predicate != t.Predicate {
		return false
	}
	if p.Object != nil && *p.Object != t.Object {
		return false
	}
	return true
}

// Graph is an insertion-ordered set of triples.
type Graph struct {
	triples []Triple
	index   map[Triple]int
}

// NewGraph returns a graph holding ts, dropping duplicates.
func NewGraph(ts ...Triple) *Graph {
	g := &Graph{index: make(map[Triple]int, len(ts))}
	for _, t := range ts {
		g.Add(t)
	}
	return g
}

// Add inserts t and reports whether it was not already present.
func (g *Graph) Add(t Triple) bool {
	if _, ok := g.index[t]; ok {
		return false
	}
	g.index[t] = len(g.triples)
	g.triples = append(g.triples, t)
	return true
}

// Remove deletes t and reports whether it was present.
func (g *Graph) Remove(t Triple) bool {
	i, ok := g.index[t]
	if !ok {
		return false
	}
	g.triples = append(g.triples[:i], g.triples[i+1:]...)
	delete(g.index, t)
	for j := i; j < len(g.triples); j++ {
		g.index[g.triples[j]] = j
	}
	return true
}

func (g *Graph) Has(t Triple) bool {
	_, ok := g.index[t]
	return ok
}

func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns a copy of the graph's triples in insertion order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Match returns every triple matching p, in insertion order.
func (g *Graph) Match(p Pattern) []Triple {
	out := []Triple{}
	for _, t := range g.triples {
		if p.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// DocumentURI strips the fragment from an IRI, yielding the document that
// describes it.
func DocumentURI(iri string) string {
	if i := strings.IndexByte(iri, '#'); i >= 0 {
		return iri[:i]
	}
	return iri
}
