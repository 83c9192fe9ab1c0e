package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"podgraph/backend/internal/constants"
	"podgraph/backend/internal/rdf"
	"podgraph/backend/internal/vocab"
	perrors "podgraph/backend/pkg/errors"
)

// ============================================================================
// Node Creation Operations
// ============================================================================

// CreateNode creates a new resource in the center's storage (or the actor's
// when the center has none), links it from the center, grants the actor
// ownership of it and finally writes its body. The presentation layer is
// told about the node only once the body is persisted.
//
// Steps are not rolled back: a *NodeCreationError with EdgeWritten set
// means the center already links to a node that does not exist.
func (r *Repository) CreateNode(ctx context.Context, n NewNode) (string, error) {
	if strings.TrimSpace(n.Title) == "" {
		return "", perrors.NewInvalidInput("title", "required")
	}
	if n.Center.URI == "" {
		return "", perrors.NewInvalidInput("center", "required")
	}
	if n.Actor.WebID == "" {
		return "", perrors.NewInvalidInput("actor", "required")
	}

	container := destinationContainer(n.Center, n.Actor)
	if container == "" {
		return "", perrors.NewInvalidInput("storage", "neither center nor actor has a storage location")
	}

	nodeURI := container + r.newSuffix()
	node := rdf.IRI(nodeURI)

	triples := []rdf.Triple{
		rdf.NewTriple(node, vocab.Title, rdf.Literal(n.Title)),
		rdf.NewTriple(node, vocab.Storage, rdf.IRI(container)),
		rdf.NewTriple(node, vocab.Maker, rdf.IRI(n.Center.URI)),
	}
	if n.Description != "" {
		triples = append(triples, rdf.NewTriple(node, vocab.Description, rdf.Literal(n.Description)))
	}
	if class, ok := r.vocab.NodeType(n.Kind); ok {
		triples = append(triples, rdf.NewTriple(node, vocab.Type, class))
	}

	imageURI, err := r.resolveAttachment(ctx, container, n.Attachment)
	if err != nil {
		return "", err
	}
	if imageURI != "" {
		triples = append(triples, rdf.NewTriple(node, vocab.Img, rdf.IRI(imageURI)))
	}

	relatedTo, _ := r.vocab.LinkPredicate(vocab.LinkRelatedTo)
	if _, err := r.WriteTriple(ctx, rdf.IRI(n.Center.URI), relatedTo, node, false); err != nil {
		return "", newNodeCreationError(StepLink, nodeURI, n.Center.URI, false, err)
	}

	aclURI, err := r.IssueAccessControl(ctx, nodeURI, n.Actor.WebID)
	if err != nil {
		return "", newNodeCreationError(StepAccessControl, nodeURI, n.Center.URI, true, err)
	}

	body, err := rdf.SerializeTurtle(triples)
	if err != nil {
		return "", newNodeCreationError(StepBody, nodeURI, n.Center.URI, true, err)
	}

	header := http.Header{}
	header.Set("Link", creationLinkHeader(aclURI))
	if _, err := r.transport.Put(ctx, nodeURI, body, constants.ContentTypeTurtle, header); err != nil {
		r.logger.Error("Failed to persist node, center keeps a dangling link",
			zap.String("node", nodeURI),
			zap.String("center", n.Center.URI),
			zap.Error(err),
		)
		return "", newNodeCreationError(StepBody, nodeURI, n.Center.URI, true, err)
	}

	r.logger.Info("Node created",
		zap.String("node", nodeURI),
		zap.String("center", n.Center.URI),
		zap.String("kind", n.Kind.String()),
	)
	r.notifier.DrawNewNode(nodeURI, relatedTo.Value)
	return nodeURI, nil
}

// StoreFile uploads a file into container after granting the current user
// ownership of it. Failures past identity resolution are logged and yield
// an empty URI: callers treat that as "attachment omitted".
func (r *Repository) StoreFile(ctx context.Context, container string, file FileAttachment) (string, error) {
	if container == "" {
		return "", perrors.NewInvalidInput("container", "required")
	}
	if file.Name == "" {
		return "", perrors.NewInvalidInput("file", "name required")
	}

	owner, err := r.identity.WebID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve identity: %w", err)
	}

	fileURI := fileURIFor(container, r.newSuffix(), file.Name)

	if _, err := r.IssueAccessControl(ctx, fileURI, owner); err != nil {
		r.logger.Warn("File upload skipped, access control not established",
			zap.String("file", fileURI),
			zap.Error(err),
		)
		return "", nil
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = constants.ContentTypeImage
	}
	if _, err := r.transport.Put(ctx, fileURI, file.Data, contentType, nil); err != nil {
		r.logger.Warn("File upload failed",
			zap.String("file", fileURI),
			zap.Int("size", len(file.Data)),
			zap.Error(err),
		)
		return "", nil
	}

	r.logger.Debug("File stored",
		zap.String("file", fileURI),
		zap.String("content_type", contentType),
	)
	return fileURI, nil
}

// resolveAttachment uploads a file attachment or passes a link through.
// An upload that yields no URI omits the image.
func (r *Repository) resolveAttachment(ctx context.Context, container string, a Attachment) (string, error) {
	switch att := a.(type) {
	case nil:
		return "", nil
	case FileAttachment:
		return r.StoreFile(ctx, container, att)
	case *FileAttachment:
		return r.StoreFile(ctx, container, *att)
	case LinkAttachment:
		return att.URI, nil
	case *LinkAttachment:
		return att.URI, nil
	}
	return "", perrors.NewInvalidInput("attachment", fmt.Sprintf("unsupported attachment %T", a))
}

func destinationContainer(center Center, actor User) string {
	container := center.Storage
	if container == "" {
		container = actor.Storage
	}
	if container != "" && !strings.HasSuffix(container, "/") {
		container += "/"
	}
	return container
}

func fileURIFor(container, suffix, name string) string {
	if !strings.HasSuffix(container, "/") {
		container += "/"
	}
	return container + constants.FilesContainer + suffix + "-" + url.PathEscape(name)
}

func creationLinkHeader(aclURI string) string {
	return fmt.Sprintf(`<%s>; rel="type", <%s>; rel="acl"`, constants.LDPResource, aclURI)
}
