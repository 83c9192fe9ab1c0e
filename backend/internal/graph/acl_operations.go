package graph

import (
	"context"

	"go.uber.org/zap"
	"podgraph/backend/internal/constants"
	"podgraph/backend/internal/rdf"
	"podgraph/backend/internal/vocab"
	perrors "podgraph/backend/pkg/errors"
)

// ============================================================================
// Access Control Operations
// ============================================================================

// AccessControlURI returns the URI of the access-control document of a resource
func AccessControlURI(resourceURI string) string {
	return resourceURI + constants.ACLSuffix
}

// IssueAccessControl writes the access-control document of resourceURI:
// owner gets full control over the resource and the document itself, and
// every agent gets read access to the resource.
func (r *Repository) IssueAccessControl(ctx context.Context, resourceURI, owner string) (string, error) {
	if resourceURI == "" {
		return "", perrors.NewInvalidInput("resource", "required")
	}
	if owner == "" {
		return "", perrors.NewInvalidInput("owner", "required")
	}

	aclURI := AccessControlURI(resourceURI)
	body, err := rdf.SerializeTurtle(buildAccessControl(resourceURI, aclURI, owner))
	if err != nil {
		return "", perrors.NewAccessControlFailed(resourceURI, aclURI, err)
	}

	if _, err := r.transport.Put(ctx, aclURI, body, constants.ContentTypeTurtle, nil); err != nil {
		r.logger.Warn("Failed to issue access control",
			zap.String("resource", resourceURI),
			zap.String("acl", aclURI),
			zap.Error(err),
		)
		return "", perrors.NewAccessControlFailed(resourceURI, aclURI, err)
	}

	r.logger.Debug("Access control issued",
		zap.String("resource", resourceURI),
		zap.String("owner", owner),
	)
	return aclURI, nil
}

func buildAccessControl(resourceURI, aclURI, owner string) []rdf.Triple {
	ownerAuth := rdf.IRI(aclURI + "#owner")
	readAuth := rdf.IRI(aclURI + "#readall")
	resource := rdf.IRI(resourceURI)

	return []rdf.Triple{
		rdf.NewTriple(ownerAuth, vocab.Type, vocab.Authorization),
		rdf.NewTriple(ownerAuth, vocab.AccessTo, resource),
		rdf.NewTriple(ownerAuth, vocab.AccessTo, rdf.IRI(aclURI)),
		rdf.NewTriple(ownerAuth, vocab.AgentPred, rdf.IRI(owner)),
		rdf.NewTriple(ownerAuth, vocab.Mode, vocab.Control),
		rdf.NewTriple(ownerAuth, vocab.Mode, vocab.Read),
		rdf.NewTriple(ownerAuth, vocab.Mode, vocab.Write),

		rdf.NewTriple(readAuth, vocab.Type, vocab.Authorization),
		rdf.NewTriple(readAuth, vocab.AccessTo, resource),
		rdf.NewTriple(readAuth, vocab.AgentClass, vocab.Agent),
		rdf.NewTriple(readAuth, vocab.Mode, vocab.Read),
	}
}
