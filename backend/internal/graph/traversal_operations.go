package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"podgraph/backend/internal/rdf"
	perrors "podgraph/backend/pkg/errors"
)

// ============================================================================
// Traversal Operations
// ============================================================================

// GetNeighbours fetches every resource the center links to through an
// allow-listed predicate. The result holds one node per such link, in the
// order the links appear in center, whether or not the fetch succeeded.
// Only cancellation of ctx is reported as an error.
func (r *Repository) GetNeighbours(ctx context.Context, center []rdf.Triple) ([]GraphNode, error) {
	links := make([]rdf.Triple, 0, len(center))
	for _, t := range center {
		if r.vocab.IsLink(t.Predicate) {
			links = append(links, t)
		}
	}
	if len(links) == 0 {
		return []GraphNode{}, nil
	}

	nodes := make([]GraphNode, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrent)

	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			nodes[i] = r.fetchNeighbour(gctx, link)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("traversal cancelled: %w", err)
	}

	skipped := 0
	for _, n := range nodes {
		if n.Unavailable {
			skipped++
		}
	}
	r.logger.Info("Loading done",
		zap.Int("neighbours", len(nodes)),
		zap.Int("skipped", skipped),
	)
	return nodes, nil
}

func (r *Repository) fetchNeighbour(ctx context.Context, link rdf.Triple) GraphNode {
	connection := link.Predicate.Value

	// a literal object has no document behind it
	if !link.Object.IsIRI() {
		traversalNeighbours.WithLabelValues(resultUnavailable).Inc()
		return GraphNode{URI: link.Object.Value, Connection: connection, Unavailable: true}
	}

	switch res := r.FetchTriples(ctx, link.Object.Value).(type) {
	case Available:
		traversalNeighbours.WithLabelValues(resultAvailable).Inc()
		return GraphNode{URI: res.URI, Triples: res.Triples, Connection: connection}
	case Unavailable:
		r.logger.Debug("Neighbour unavailable",
			zap.String("uri", res.URI),
			zap.Int("status", res.Status),
			zap.Error(res.Err),
		)
	}
	traversalNeighbours.WithLabelValues(resultUnavailable).Inc()
	return GraphNode{URI: link.Object.Value, Connection: connection, Unavailable: true}
}

// GetGraphMapAtURI returns the center at uri followed by its neighbours.
// An unreadable center yields a single Unavailable node.
func (r *Repository) GetGraphMapAtURI(ctx context.Context, uri string) (GraphMap, error) {
	if uri == "" {
		return nil, perrors.NewInvalidInput("uri", "required")
	}

	var center GraphNode
	switch res := r.FetchTriples(ctx, uri).(type) {
	case Available:
		center = GraphNode{URI: uri, Triples: res.Triples}
	case Unavailable:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.logger.Warn("Center unavailable",
			zap.String("uri", uri),
			zap.Int("status", res.Status),
			zap.Error(res.Err),
		)
		return GraphMap{{URI: uri, Unavailable: true}}, nil
	}

	neighbours, err := r.GetNeighbours(ctx, center.Triples)
	if err != nil {
		return nil, err
	}

	graphMap := make(GraphMap, 0, len(neighbours)+1)
	graphMap = append(graphMap, center)
	graphMap = append(graphMap, neighbours...)
	return graphMap, nil
}

// GetGraphMapAtIdentity returns the graph map centered on the current user
func (r *Repository) GetGraphMapAtIdentity(ctx context.Context) (GraphMap, error) {
	webID, err := r.identity.WebID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}
	return r.GetGraphMapAtURI(ctx, webID)
}
