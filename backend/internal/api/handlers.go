package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"podgraph/backend/internal/graph"
	"podgraph/backend/internal/rdf"
	"podgraph/backend/internal/vocab"
	perrors "podgraph/backend/pkg/errors"
)

// maxAttachmentSize bounds multipart uploads
const maxAttachmentSize = 16 << 20

// GraphService is the part of graph.Repository the API calls
type GraphService interface {
	FindTriples(ctx context.Context, uri string, pattern rdf.Pattern) ([]rdf.Triple, error)
	WriteTriple(ctx context.Context, subject, predicate, object rdf.Term, notify bool) (graph.WriteOutcome, error)
	DeleteTriples(ctx context.Context, uri string, triples []rdf.Triple) error
	FindObjectsByTerm(ctx context.Context, uri, field string) ([]rdf.Term, error)
	CreateNode(ctx context.Context, n graph.NewNode) (string, error)
	SeverLink(ctx context.Context, centerURI, neighbourURI string, predicate rdf.Term) error
	DeleteResource(ctx context.Context, uri string) error
	GetGraphMapAtURI(ctx context.Context, uri string) (graph.GraphMap, error)
	GetGraphMapAtIdentity(ctx context.Context) (graph.GraphMap, error)
	Vocabulary() *vocab.Vocabulary
}

// Handler serves the /api routes on behalf of a single configured user
type Handler struct {
	graph  GraphService
	actor  graph.User
	logger *zap.Logger
}

// NewHandler creates the API handlers
func NewHandler(svc GraphService, actor graph.User, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{graph: svc, actor: actor, logger: log}
}

type writeTripleRequest struct {
	Subject   string   `json:"subject" binding:"required"`
	Predicate string   `json:"predicate" binding:"required"`
	Object    rdf.Term `json:"object"`
	Notify    bool     `json:"notify"`
}

type deleteTriplesRequest struct {
	URI     string       `json:"uri" binding:"required"`
	Triples []rdf.Triple `json:"triples" binding:"required"`
}

type severLinkRequest struct {
	Center    string `json:"center" binding:"required"`
	Neighbour string `json:"neighbour" binding:"required"`
	Link      string `json:"link" binding:"required"`
}

type createNodeRequest struct {
	CenterURI     string `json:"center_uri" form:"center_uri"`
	CenterStorage string `json:"center_storage" form:"center_storage"`
	Title         string `json:"title" form:"title"`
	Description   string `json:"description" form:"description"`
	Kind          string `json:"kind" form:"kind"`
	ImageURI      string `json:"image_uri" form:"image_uri"`
}

// GetGraph returns the graph map at ?uri=, or at the current user
func (h *Handler) GetGraph(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		graphMap graph.GraphMap
		err      error
	)
	if uri := c.Query("uri"); uri != "" {
		graphMap, err = h.graph.GetGraphMapAtURI(ctx, uri)
	} else {
		graphMap, err = h.graph.GetGraphMapAtIdentity(ctx)
	}
	if err != nil {
		h.writeError(c, "Failed to load graph", err)
		return
	}

	c.JSON(http.StatusOK, graphMap)
}

// FindTriples matches ?subject=&predicate=&object= against the resource at ?uri=.
// ?object_kind=literal treats the object as a plain literal.
func (h *Handler) FindTriples(c *gin.Context) {
	uri := c.Query("uri")
	if uri == "" {
		h.writeError(c, "Invalid request", perrors.NewInvalidInput("uri", "required"))
		return
	}

	var pattern rdf.Pattern
	if s := c.Query("subject"); s != "" {
		pattern.Subject = rdf.Bind(rdf.IRI(s))
	}
	if p := c.Query("predicate"); p != "" {
		pattern.Predicate = rdf.Bind(rdf.IRI(p))
	}
	if o := c.Query("object"); o != "" {
		kind, err := rdf.ParseTermKind(c.Query("object_kind"))
		if err != nil {
			h.writeError(c, "Invalid request", perrors.NewInvalidInput("object_kind", err.Error()))
			return
		}
		pattern.Object = rdf.Bind(rdf.Term{Kind: kind, Value: o})
	}

	triples, err := h.graph.FindTriples(c.Request.Context(), uri, pattern)
	if err != nil {
		h.writeError(c, "Failed to find triples", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"triples": triples})
}

// WriteTriple inserts a triple unless it is already present
func (h *Handler) WriteTriple(c *gin.Context) {
	var req writeTripleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.graph.WriteTriple(c.Request.Context(),
		rdf.IRI(req.Subject), rdf.IRI(req.Predicate), normalizeTerm(req.Object), req.Notify)
	if err != nil {
		h.writeError(c, "Failed to write triple", err)
		return
	}

	status := http.StatusCreated
	if outcome == graph.AlreadyPresent {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"outcome": outcome.String()})
}

// DeleteTriples removes the listed triples with one update
func (h *Handler) DeleteTriples(c *gin.Context) {
	var req deleteTriplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	triples := make([]rdf.Triple, len(req.Triples))
	for i, t := range req.Triples {
		triples[i] = rdf.NewTriple(normalizeTerm(t.Subject), normalizeTerm(t.Predicate), normalizeTerm(t.Object))
	}

	if err := h.graph.DeleteTriples(c.Request.Context(), req.URI, triples); err != nil {
		h.writeError(c, "Failed to delete triples", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "count": len(triples)})
}

// FindObjects resolves ?field= on the profile at ?uri=
func (h *Handler) FindObjects(c *gin.Context) {
	objects, err := h.graph.FindObjectsByTerm(c.Request.Context(), c.Query("uri"), c.Query("field"))
	if err != nil {
		h.writeError(c, "Failed to find objects", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"objects": objects})
}

// CreateNode accepts JSON, or a multipart form with an optional
// "attachment" file part.
func (h *Handler) CreateNode(c *gin.Context) {
	var (
		req        createNodeRequest
		attachment graph.Attachment
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		file, err := readAttachment(c)
		if err != nil {
			h.writeError(c, "Invalid attachment", err)
			return
		}
		if file != nil {
			attachment = *file
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if attachment == nil && req.ImageURI != "" {
		attachment = graph.LinkAttachment{URI: req.ImageURI}
	}

	centerURI := req.CenterURI
	if centerURI == "" {
		centerURI = h.actor.WebID
	}

	uri, err := h.graph.CreateNode(c.Request.Context(), graph.NewNode{
		Actor:       h.actor,
		Center:      graph.Center{URI: centerURI, Storage: req.CenterStorage},
		Title:       req.Title,
		Description: req.Description,
		Attachment:  attachment,
		Kind:        vocab.ParseNodeKind(req.Kind),
	})
	if err != nil {
		h.writeError(c, "Failed to create node", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"uri": uri})
}

// SeverLink removes the link from a center to a neighbour
func (h *Handler) SeverLink(c *gin.Context) {
	var req severLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind, err := vocab.ParseLinkKind(req.Link)
	if err != nil {
		h.writeError(c, "Invalid request", perrors.NewInvalidInput("link", err.Error()))
		return
	}
	predicate, _ := h.graph.Vocabulary().LinkPredicate(kind)

	if err := h.graph.SeverLink(c.Request.Context(), req.Center, req.Neighbour, predicate); err != nil {
		h.writeError(c, "Failed to sever link", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "severed"})
}

// DeleteResource removes the resource at ?uri=
func (h *Handler) DeleteResource(c *gin.Context) {
	if err := h.graph.DeleteResource(c.Request.Context(), c.Query("uri")); err != nil {
		h.writeError(c, "Failed to delete resource", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func readAttachment(c *gin.Context) (*graph.FileAttachment, error) {
	header, err := c.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewInvalidInput("attachment", err.Error())
	}
	if header.Size > maxAttachmentSize {
		return nil, perrors.NewInvalidInput("attachment", fmt.Sprintf("larger than %d bytes", maxAttachmentSize))
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	return &graph.FileAttachment{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// normalizeTerm treats a term without a kind as an IRI and rebuilds
// literals so they compare equal to parsed ones
func normalizeTerm(t rdf.Term) rdf.Term {
	switch {
	case t.Kind == "" && t.Value != "":
		t.Kind = rdf.KindIRI
	case t.Kind == rdf.KindLiteral && t.Lang != "":
		return rdf.LangLiteral(t.Value, t.Lang)
	case t.Kind == rdf.KindLiteral:
		return rdf.TypedLiteral(t.Value, t.Datatype)
	}
	return t
}

func (h *Handler) writeError(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var nodeErr *graph.NodeCreationError
	if errors.As(err, &nodeErr) {
		body["step"] = nodeErr.Step
		body["node_uri"] = nodeErr.NodeURI
		body["edge_written"] = nodeErr.EdgeWritten
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	} else {
		h.logger.Debug(msg, zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	switch {
	case perrors.IsErrorType(err, perrors.ErrorTypeInput):
		return http.StatusBadRequest
	case perrors.IsErrorType(err, perrors.ErrorTypeGraph):
		return http.StatusBadGateway
	case perrors.IsErrorType(err, perrors.ErrorTypeResource), perrors.IsNotFound(err):
		return http.StatusNotFound
	case perrors.IsErrorType(err, perrors.ErrorTypeTransport),
		perrors.IsErrorType(err, perrors.ErrorTypeAccessControl):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
