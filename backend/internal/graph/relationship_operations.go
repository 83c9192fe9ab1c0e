package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"podgraph/backend/internal/rdf"
	perrors "podgraph/backend/pkg/errors"
)

// ============================================================================
// Triple Mutation Operations
// ============================================================================

// WriteTriple inserts (subject, predicate, object) into the document of the
// subject unless an identical triple is already there. With notify set and
// an allow-listed predicate, the presentation layer is told to draw the
// object as a new node once the pod accepted the insert.
func (r *Repository) WriteTriple(ctx context.Context, subject, predicate, object rdf.Term, notify bool) (WriteOutcome, error) {
	if !subject.IsIRI() {
		return 0, perrors.NewInvalidInput("subject", "must be an IRI")
	}
	if !predicate.IsIRI() {
		return 0, perrors.NewInvalidInput("predicate", "must be an IRI")
	}
	if object.IsZero() {
		return 0, perrors.NewInvalidInput("object", "required")
	}

	triple := rdf.NewTriple(subject, predicate, object)
	doc := rdf.DocumentURI(subject.Value)

	existing, err := r.FindTriples(ctx, doc, rdf.Exactly(triple))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		if !perrors.IsErrorType(err, perrors.ErrorTypeResource) {
			return 0, err
		}
		// PATCH creates the document on the pod if it does not exist yet
		r.logger.Debug("Target document unreadable, inserting anyway",
			zap.String("uri", doc),
			zap.Error(err),
		)
	}
	if len(existing) > 0 {
		r.logger.Info("Triple already present in the rdf file",
			zap.String("uri", doc),
			zap.String("triple", triple.NT()),
		)
		return AlreadyPresent, nil
	}

	if _, err := r.transport.Patch(ctx, doc, rdf.InsertData(triple)); err != nil {
		r.logger.Warn("Failed to insert triple",
			zap.String("uri", doc),
			zap.String("triple", triple.NT()),
			zap.Error(err),
		)
		return 0, fmt.Errorf("failed to write triple: %w", err)
	}

	if notify && r.vocab.IsLink(predicate) && object.IsIRI() {
		r.notifier.DrawNewNode(object.Value, predicate.Value)
	}
	return Inserted, nil
}

// DeleteTriple removes a single triple from the resource at uri.
func (r *Repository) DeleteTriple(ctx context.Context, uri string, subject, predicate, object rdf.Term) error {
	return r.DeleteTriples(ctx, uri, []rdf.Triple{rdf.NewTriple(subject, predicate, object)})
}

// DeleteTriples removes triples from the resource at uri with a single
// PATCH. Whether triples absent from the resource make the request fail is
// up to the pod.
func (r *Repository) DeleteTriples(ctx context.Context, uri string, triples []rdf.Triple) error {
	if uri == "" {
		return perrors.NewInvalidInput("uri", "required")
	}
	if len(triples) == 0 {
		return perrors.NewInvalidInput("triples", "at least one triple is required")
	}

	if _, err := r.transport.Patch(ctx, uri, rdf.DeleteData(triples...)); err != nil {
		r.logger.Warn("Failed to delete triples",
			zap.String("uri", uri),
			zap.Int("count", len(triples)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to delete triples: %w", err)
	}
	return nil
}

// SeverLink removes every link from the center document to neighbour via
// predicate and tells the presentation layer to drop the node. It is how a
// caller disconnects an Unavailable neighbour, or a node whose creation
// failed half way.
func (r *Repository) SeverLink(ctx context.Context, centerURI, neighbourURI string, predicate rdf.Term) error {
	if !r.vocab.IsLink(predicate) {
		return perrors.NewInvalidInput("predicate", "not a link predicate")
	}
	if neighbourURI == "" {
		return perrors.NewInvalidInput("neighbour", "required")
	}

	doc := rdf.DocumentURI(centerURI)
	links, err := r.FindTriples(ctx, doc, rdf.Pattern{
		Predicate: &predicate,
		Object:    rdf.Bind(rdf.IRI(neighbourURI)),
	})
	if err != nil {
		return err
	}
	if len(links) == 0 {
		r.logger.Info("No link to sever",
			zap.String("center", doc),
			zap.String("neighbour", neighbourURI),
		)
		return nil
	}

	if err := r.DeleteTriples(ctx, doc, links); err != nil {
		return err
	}
	r.notifier.RemoveNode(neighbourURI, predicate.Value)
	return nil
}

// DeleteResource removes a resource from the pod. Its access-control
// document is left alone since it may be shared through inheritance.
func (r *Repository) DeleteResource(ctx context.Context, uri string) error {
	if uri == "" {
		return perrors.NewInvalidInput("uri", "required")
	}
	if _, err := r.transport.Delete(ctx, uri); err != nil {
		r.logger.Warn("Failed to delete resource",
			zap.String("uri", uri),
			zap.Error(err),
		)
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	return nil
}
