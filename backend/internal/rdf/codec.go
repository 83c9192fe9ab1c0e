package rdf

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	krdf "github.com/knakk/rdf"
)

// ParseTurtle decodes a Turtle document. Relative IRIs, including those in
// @prefix and @base directives, are resolved against base per RFC 3986.
// base should be the URI the document was fetched from.
func ParseTurtle(r io.Reader, base string) ([]Triple, error) {
	if base == "" {
		return decode(r, krdf.Turtle)
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	resolved, err := resolveIRIRefs(src, base)
	if err != nil {
		return nil, err
	}
	return decode(bytes.NewReader(resolved), krdf.Turtle)
}

// ParseNTriples decodes an N-Triples document.
func ParseNTriples(r io.Reader) ([]Triple, error) {
	return decode(r, krdf.NTriples)
}

// decode runs the codec on a document whose IRI references are already
// absolute. The codec's own base option concatenates strings, so it is not used.
func decode(r io.Reader, format krdf.Format) ([]Triple, error) {
	dec := krdf.NewTripleDecoder(r, format)
	decoded, err := dec.DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	triples := make([]Triple, 0, len(decoded))
	for _, kt := range decoded {
		triples = append(triples, Triple{
			Subject:   fromCodecTerm(kt.Subj),
			Predicate: fromCodecTerm(kt.Pred),
			Object:    fromCodecTerm(kt.Obj),
		})
	}
	return triples, nil
}

// resolveIRIRefs rewrites every <...> reference outside strings and comments
// to its absolute form. A @base or BASE directive moves the base for the
// references that follow it.
func resolveIRIRefs(src []byte, base string) ([]byte, error) {
	current, err := url.Parse(base)
	if err != nil || !current.IsAbs() {
		return nil, fmt.Errorf("invalid base IRI %q", base)
	}
	current.Fragment, current.RawFragment = "", ""

	var (
		out      bytes.Buffer
		baseNext bool
	)
	out.Grow(len(src))
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '#':
			end := bytes.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			out.Write(src[i : i+end])
			i += end
		case c == '"' || c == '\'':
			end := skipString(src, i)
			out.Write(src[i:end])
			i = end
		case c == '<':
			end := bytes.IndexByte(src[i+1:], '>')
			if end < 0 {
				out.Write(src[i:])
				i = len(src)
				continue
			}
			ref := string(src[i+1 : i+1+end])
			abs := resolveRef(current, ref)
			if baseNext {
				if u, err := url.Parse(abs); err == nil {
					u.Fragment, u.RawFragment = "", ""
					current = u
				}
				baseNext = false
			}
			out.WriteByte('<')
			out.WriteString(abs)
			out.WriteByte('>')
			i += end + 2
		case isWordByte(c):
			start := i
			for i < len(src) && (isWordByte(src[i]) || src[i] == ':' || src[i] == '.' && i+1 < len(src) && isWordByte(src[i+1])) {
				i++
			}
			word := src[start:i]
			if w := strings.ToLower(string(word)); w == "@base" || w == "base" {
				baseNext = true
			}
			out.Write(word)
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.Bytes(), nil
}

func resolveRef(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return ref
	}
	resolved := base.ResolveReference(u)
	if u.Fragment == "" {
		resolved.Fragment, resolved.RawFragment = "", ""
		// url drops an empty fragment, but prefixes like <#> depend on it
		if strings.HasSuffix(ref, "#") {
			return resolved.String() + "#"
		}
	}
	return resolved.String()
}

// skipString returns the index just past the string literal starting at i.
func skipString(src []byte, i int) int {
	q := src[i]
	long := i+2 < len(src) && src[i+1] == q && src[i+2] == q
	if long {
		for j := i + 3; j < len(src); j++ {
			if src[j] == '\\' {
				j++
				continue
			}
			if src[j] == q && j+2 < len(src) && src[j+1] == q && src[j+2] == q {
				return j + 3
			}
		}
		return len(src)
	}
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j + 1
		case '\n':
			return j
		}
	}
	return len(src)
}

func isWordByte(c byte) bool {
	return c == '@' || c == '_' || c == '-' ||
		c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c >= 0x80
}

// SerializeTurtle encodes triples as a Turtle document.
func SerializeTurtle(triples []Triple) ([]byte, error) {
	encoded := make([]krdf.Triple, 0, len(triples))
	for _, t := range triples {
		kt, err := toCodecTriple(t)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, kt)
	}

	var buf bytes.Buffer
	enc := krdf.NewTripleEncoder(&buf, krdf.Turtle)
	if err := enc.EncodeAll(encoded); err != nil {
		return nil, fmt.Errorf("failed to encode triples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func fromCodecTerm(t krdf.Term) Term {
	switch v := t.(type) {
	case krdf.IRI:
		return IRI(v.String())
	case krdf.Blank:
		return Blank(v.String())
	case krdf.Literal:
		if lang := v.Lang(); lang != "" {
			return LangLiteral(v.String(), lang)
		}
		return TypedLiteral(v.String(), v.DataType.String())
	default:
		return Term{}
	}
}

func toCodecTriple(t Triple) (krdf.Triple, error) {
	subj, err := toCodecSubject(t.Subject)
	if err != nil {
		return krdf.Triple{}, err
	}
	if !t.Predicate.IsIRI() {
		return krdf.Triple{}, fmt.Errorf("predicate must be an IRI, got %s", t.Predicate.Kind)
	}
	pred, err := krdf.NewIRI(t.Predicate.Value)
	if err != nil {
		return krdf.Triple{}, err
	}
	obj, err := toCodecObject(t.Object)
	if err != nil {
		return krdf.Triple{}, err
	}
	return krdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}

func toCodecSubject(t Term) (krdf.Subject, error) {
	switch t.Kind {
	case KindIRI:
		iri, err := krdf.NewIRI(t.Value)
		return iri, err
	case KindBlank:
		b, err := krdf.NewBlank(t.Value)
		return b, err
	}
	return nil, fmt.Errorf("subject must be an IRI or blank node, got %s", t.Kind)
}

func toCodecObject(t Term) (krdf.Object, error) {
	switch t.Kind {
	case KindIRI:
		iri, err := krdf.NewIRI(t.Value)
		return iri, err
	case KindBlank:
		b, err := krdf.NewBlank(t.Value)
		return b, err
	case KindLiteral:
		if t.Lang != "" {
			l, err := krdf.NewLangLiteral(t.Value, t.Lang)
			return l, err
		}
		if t.Datatype != "" {
			dt, err := krdf.NewIRI(t.Datatype)
			if err != nil {
				return nil, err
			}
			return krdf.NewTypedLiteral(t.Value, dt), nil
		}
		l, err := krdf.NewLiteral(t.Value)
		return l, err
	}
	return nil, fmt.Errorf("cannot encode term of kind %q", t.Kind)
}
