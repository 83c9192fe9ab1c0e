// Package vocab names the RDF vocabularies the graph agent reads and writes,
// and the fixed tables that map caller-facing names onto them.
package vocab

import (
	"fmt"
	"sort"

	"podgraph/backend/internal/rdf"
)

// Namespace is an IRI prefix; Term appends a local name to it.
type Namespace string

func (n Namespace) Term(local string) rdf.Term {
	return rdf.IRI(string(n) + local)
}

const (
	Schema Namespace = "https://schema.org/"
	RDF    Namespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	FOAF   Namespace = "http://xmlns.com/foaf/0.1/"
	DC     Namespace = "http://purl.org/dc/terms/"
	PIM    Namespace = "http://www.w3.org/ns/pim/space#"
	ACL    Namespace = "http://www.w3.org/ns/auth/acl#"
)

// Predicates and classes used by the agent
var (
	IsRelatedTo = Schema.Term("isRelatedTo")

	Knows    = FOAF.Term("knows")
	Maker    = FOAF.Term("maker")
	Img      = FOAF.Term("img")
	Agent    = FOAF.Term("Agent")
	Document = FOAF.Term("Document")
	Image    = FOAF.Term("Image")

	Title       = DC.Term("title")
	Description = DC.Term("description")
	Storage     = PIM.Term("storage")
	Type        = RDF.Term("type")

	Authorization = ACL.Term("Authorization")
	AccessTo      = ACL.Term("accessTo")
	AgentPred     = ACL.Term("agent")
	AgentClass    = ACL.Term("agentClass")
	Mode          = ACL.Term("mode")
	Control       = ACL.Term("Control")
	Read          = ACL.Term("Read")
	Write         = ACL.Term("Write")
)

// LinkKind enumerates the edges the traversal engine follows.
type LinkKind int

const (
	LinkRelatedTo LinkKind = iota + 1
	LinkKnows
)

func (k LinkKind) String() string {
	switch k {
	case LinkRelatedTo:
		return "relatedTo"
	case LinkKnows:
		return "knows"
	}
	return fmt.Sprintf("LinkKind(%d)", int(k))
}

// ParseLinkKind maps "relatedTo" / "knows" to a LinkKind.
func ParseLinkKind(s string) (LinkKind, error) {
	switch s {
	case "relatedTo":
		return LinkRelatedTo, nil
	case "knows":
		return LinkKnows, nil
	}
	return 0, fmt.Errorf("unknown link kind %q", s)
}

// NodeKind selects the rdf:type written for a new node.
type NodeKind int

const (
	NodeKindUnknown NodeKind = iota
	NodeKindDefault
	NodeKindImage
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindDefault:
		return "default"
	case NodeKindImage:
		return "image"
	}
	return "unknown"
}

// ParseNodeKind never fails: unrecognized names yield NodeKindUnknown, which
// produces a node without an rdf:type triple.
func ParseNodeKind(s string) NodeKind {
	switch s {
	case "default":
		return NodeKindDefault
	case "image":
		return NodeKindImage
	}
	return NodeKindUnknown
}

// Vocabulary is the table owned by the agent: which predicates count as
// graph edges, which class each node kind gets, and which profile fields
// FindObjectsByTerm understands.
type Vocabulary struct {
	links  map[LinkKind]rdf.Term
	types  map[NodeKind]rdf.Term
	fields map[string]rdf.Term
}

// Default returns the standard vocabulary. The link allow-list is exactly
// schema:isRelatedTo and foaf:knows.
func Default() *Vocabulary {
	return &Vocabulary{
		links: map[LinkKind]rdf.Term{
			LinkRelatedTo: IsRelatedTo,
			LinkKnows:     Knows,
		},
		types: map[NodeKind]rdf.Term{
			NodeKindDefault: Document,
			NodeKindImage:   Image,
		},
		fields: map[string]rdf.Term{
			"name":        FOAF.Term("name"),
			"givenName":   FOAF.Term("givenName"),
			"familyName":  FOAF.Term("familyName"),
			"email":       FOAF.Term("mbox"),
			"phone":       FOAF.Term("phone"),
			"image":       Img,
			"knows":       Knows,
			"relatedTo":   IsRelatedTo,
			"storage":     Storage,
			"title":       Title,
			"description": Description,
		},
	}
}

// LinkPredicate returns the predicate for a link kind.
func (v *Vocabulary) LinkPredicate(k LinkKind) (rdf.Term, bool) {
	p, ok := v.links[k]
	return p, ok
}

// LinkKindOf reports which allow-listed link a predicate is, if any.
func (v *Vocabulary) LinkKindOf(pred rdf.Term) (LinkKind, bool) {
	for k, p := range v.links {
		if p == pred {
			return k, true
		}
	}
	return 0, false
}

// IsLink reports whether pred is in the traversal allow-list.
func (v *Vocabulary) IsLink(pred rdf.Term) bool {
	_, ok := v.LinkKindOf(pred)
	return ok
}

// NodeType returns the rdf:type object for a node kind.
func (v *Vocabulary) NodeType(k NodeKind) (rdf.Term, bool) {
	t, ok := v.types[k]
	return t, ok
}

// Field resolves a profile field name to its predicate.
func (v *Vocabulary) Field(name string) (rdf.Term, bool) {
	p, ok := v.fields[name]
	return p, ok
}

// FieldNames lists the known profile fields, sorted.
func (v *Vocabulary) FieldNames() []string {
	names := make([]string, 0, len(v.fields))
	for name := range v.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
