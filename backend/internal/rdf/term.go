// Package rdf holds the triple data model the graph agent works with and
// adapts the Turtle codec to it.
package rdf

import (
	"fmt"
	"strings"
)

// TermKind distinguishes the three RDF term variants.
type TermKind string

const (
	KindIRI     TermKind = "iri"
	KindLiteral TermKind = "literal"
	KindBlank   TermKind = "blank"
)

// XSDString is the implicit datatype of plain literals.
const XSDString = "http://www.w3.org/2001/XMLSchema#string"

// Term is an IRI, a literal or a blank node. Terms are comparable values:
// two terms are equal when every field is equal.
type Term struct {
	Kind     TermKind `json:"kind"`
	Value    string   `json:"value"`
	Datatype string   `json:"datatype,omitempty"`
	Lang     string   `json:"lang,omitempty"`
}

// IRI returns an IRI term.
func IRI(v string) Term {
	return Term{Kind: KindIRI, Value: v}
}

// Literal returns a plain string literal.
func Literal(v string) Term {
	return Term{Kind: KindLiteral, Value: v}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(v, lang string) Term {
	return Term{Kind: KindLiteral, Value: v, Lang: strings.ToLower(lang)}
}

// TypedLiteral returns a literal with an explicit datatype. xsd:string is
// normalized away so that "x" and "x"^^xsd:string compare equal.
func TypedLiteral(v, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

// Blank returns a blank node term.
func Blank(id string) Term {
	return Term{Kind: KindBlank, Value: strings.TrimPrefix(id, "_:")}
}

func (t Term) IsIRI() bool     { return t.Kind == KindIRI }
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }
func (t Term) IsBlank() bool   { return t.Kind == KindBlank }
func (t Term) IsZero() bool    { return t == Term{} }

// NT renders the term in N-Triples syntax.
func (t Term) NT() string {
	switch t.Kind {
	case KindIRI:
		return "<" + escapeIRI(t.Value) + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		s := `"` + escapeLiteral(t.Value) + `"`
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" {
			return s + "^^<" + escapeIRI(t.Datatype) + ">"
		}
		return s
	default:
		return ""
	}
}

func (t Term) String() string {
	if t.Kind == KindLiteral {
		return t.Value
	}
	return t.NT()
}

// ParseTermKind is the inverse of TermKind's string form.
func ParseTermKind(s string) (TermKind, error) {
	switch TermKind(strings.ToLower(s)) {
	case KindIRI, "":
		return KindIRI, nil
	case KindLiteral:
		return KindLiteral, nil
	case KindBlank:
		return KindBlank, nil
	}
	return "", fmt.Errorf("unknown term kind %q", s)
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

// escapeIRI percent-encodes the characters N-Triples forbids inside <>.
func escapeIRI(s string) string {
	if !strings.ContainsAny(s, "<>\"{}|^`\\ ") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\', ' ':
			fmt.Fprintf(&b, "%%%02X", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
