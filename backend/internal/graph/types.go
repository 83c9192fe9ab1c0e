package graph

import (
	"fmt"

	"podgraph/backend/internal/rdf"
	"podgraph/backend/internal/vocab"
	perrors "podgraph/backend/pkg/errors"
)

// ============================================================================
// Graph Types
// ============================================================================

// User is the current user as handed in by the session layer
type User struct {
	WebID   string `json:"web_id"`
	Storage string `json:"storage,omitempty"`
}

// Center is the node new nodes are attached to
type Center struct {
	URI     string `json:"uri"`
	Storage string `json:"storage,omitempty"`
}

// GraphNode is one entry of a GraphMap: the triples of a resource, or a
// placeholder for a neighbour that could not be fetched. Connection is the
// predicate that led to the node and is empty for the center.
type GraphNode struct {
	URI         string       `json:"uri"`
	Triples     []rdf.Triple `json:"triples"`
	Connection  string       `json:"connection,omitempty"`
	Unavailable bool         `json:"unav,omitempty"`
}

// GraphMap is the visible graph around a center: index 0 is the center,
// followed by its neighbours in the order their links appear in the center.
type GraphMap []GraphNode

// FetchResult is the outcome of reading one resource: Available or Unavailable
type FetchResult interface {
	ResourceURI() string
	isFetchResult()
}

// Available is a resource that was fetched and parsed
type Available struct {
	URI     string
	Triples []rdf.Triple
}

// Unavailable is a resource that could not be read. Status is the HTTP
// status when the pod answered, zero otherwise.
type Unavailable struct {
	URI    string
	Status int
	Err    error
}

func (a Available) ResourceURI() string   { return a.URI }
func (u Unavailable) ResourceURI() string { return u.URI }
func (Available) isFetchResult()          {}
func (Unavailable) isFetchResult()        {}

// Attachment is an optional image for a new node: a FileAttachment that is
// uploaded first, or a LinkAttachment pointing at an existing resource
type Attachment interface {
	isAttachment()
}

// FileAttachment is binary content to upload next to the node
type FileAttachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// LinkAttachment references an image that already exists
type LinkAttachment struct {
	URI string
}

func (FileAttachment) isAttachment() {}
func (LinkAttachment) isAttachment() {}

// NewNode describes a node to create
type NewNode struct {
	Actor       User
	Center      Center
	Title       string
	Description string
	Attachment  Attachment
	Kind        vocab.NodeKind
}

// WriteOutcome tells whether WriteTriple changed the resource
type WriteOutcome int

const (
	Inserted WriteOutcome = iota + 1
	AlreadyPresent
)

func (o WriteOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case AlreadyPresent:
		return "already_present"
	}
	return "unknown"
}

// CreationStep names the step of CreateNode that failed
type CreationStep string

const (
	StepLink          CreationStep = "link"
	StepAccessControl CreationStep = "access_control"
	StepBody          CreationStep = "body"
)

// NodeCreationError is returned when CreateNode fails after it started
// writing. EdgeWritten reports that the center already links to NodeURI,
// which the caller may want to sever since nothing is rolled back.
type NodeCreationError struct {
	*perrors.BaseError
	Step        CreationStep
	NodeURI     string
	CenterURI   string
	EdgeWritten bool
}

func newNodeCreationError(step CreationStep, nodeURI, centerURI string, edgeWritten bool, err error) *NodeCreationError {
	return &NodeCreationError{
		BaseError:   perrors.NewBaseError(perrors.ErrorTypeGraph, fmt.Sprintf("creating node %s failed at step %s", nodeURI, step), err),
		Step:        step,
		NodeURI:     nodeURI,
		CenterURI:   centerURI,
		EdgeWritten: edgeWritten,
	}
}
