package graph

import (
	"context"

	perrors "podgraph/backend/pkg/errors"
)

// Notifier is the presentation layer. It is only called after the pod
// confirmed the change.
type Notifier interface {
	// DrawNewNode announces a node reachable from the center via predicate
	DrawNewNode(uri, predicate string)
	// RemoveNode announces that the link to uri via predicate is gone
	RemoveNode(uri, predicate string)
}

// NopNotifier drops notifications
type NopNotifier struct{}

func (NopNotifier) DrawNewNode(string, string) {}
func (NopNotifier) RemoveNode(string, string)  {}

// IdentityResolver yields the current user's WebID
type IdentityResolver interface {
	WebID(ctx context.Context) (string, error)
}

// StaticIdentity is an identity handed in at startup
type StaticIdentity struct {
	User User
}

func (s StaticIdentity) WebID(ctx context.Context) (string, error) {
	if s.User.WebID == "" {
		return "", perrors.NewInvalidInput("identity", "no current user")
	}
	return s.User.WebID, nil
}
