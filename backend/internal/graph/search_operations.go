package graph

import (
	"bytes"
	"context"

	"go.uber.org/zap"
	"podgraph/backend/internal/constants"
	"podgraph/backend/internal/rdf"
	perrors "podgraph/backend/pkg/errors"
)

// ============================================================================
// Query Operations
// ============================================================================

// FetchTriples reads and parses the document describing uri. Any failure,
// including an unparsable body, yields Unavailable rather than an error.
func (r *Repository) FetchTriples(ctx context.Context, uri string) FetchResult {
	doc := rdf.DocumentURI(uri)

	resp, err := r.transport.Get(ctx, doc)
	if err != nil {
		return Unavailable{URI: uri, Status: perrors.StatusOf(err), Err: err}
	}

	triples, err := rdf.ParseTurtle(bytes.NewReader(resp.Body), doc)
	if err != nil {
		r.logger.Warn("Failed to parse resource",
			zap.String("uri", doc),
			zap.Error(err),
		)
		return Unavailable{URI: uri, Status: resp.Status, Err: err}
	}

	return Available{URI: uri, Triples: triples}
}

// FindTriples returns the triples of the resource at uri matching pattern.
// An unreadable resource yields an empty result and a
// *errors.ResourceUnavailableError.
func (r *Repository) FindTriples(ctx context.Context, uri string, pattern rdf.Pattern) ([]rdf.Triple, error) {
	if uri == "" {
		return []rdf.Triple{}, perrors.NewInvalidInput("uri", "required")
	}

	switch res := r.FetchTriples(ctx, uri).(type) {
	case Available:
		return rdf.NewGraph(res.Triples...).Match(pattern), nil
	case Unavailable:
		return []rdf.Triple{}, perrors.NewResourceUnavailable(uri, res.Err)
	}
	return []rdf.Triple{}, nil
}

// FindObjectsByTerm returns the objects of <uri#me> for the profile field
// named field, e.g. "email" or "name".
func (r *Repository) FindObjectsByTerm(ctx context.Context, uri, field string) ([]rdf.Term, error) {
	if uri == "" {
		return nil, perrors.NewInvalidInput("uri", "required")
	}
	if field == "" {
		return nil, perrors.NewInvalidInput("field", "required")
	}
	predicate, ok := r.vocab.Field(field)
	if !ok {
		return nil, perrors.NewInvalidInput("field", "unknown field "+field)
	}

	doc := rdf.DocumentURI(uri)
	subject := rdf.IRI(doc + constants.ProfileFragment)
	triples, err := r.FindTriples(ctx, doc, rdf.Pattern{
		Subject:   &subject,
		Predicate: &predicate,
	})
	if err != nil {
		return nil, err
	}

	objects := make([]rdf.Term, 0, len(triples))
	for _, t := range triples {
		objects = append(objects, t.Object)
	}
	return objects, nil
}
