package graph

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"podgraph/backend/internal/constants"
	"podgraph/backend/internal/transport"
	"podgraph/backend/internal/vocab"
	"podgraph/backend/pkg/logger"
)

// Transport is the subset of the resource transport the repository needs.
type Transport interface {
	Get(ctx context.Context, uri string) (*transport.Response, error)
	Put(ctx context.Context, uri string, body []byte, contentType string, extra http.Header) (*transport.Response, error)
	Patch(ctx context.Context, uri, update string) (*transport.Response, error)
	Delete(ctx context.Context, uri string) (*transport.Response, error)
}

// Repository reads and mutates the remote graph of Linked Data resources
type Repository struct {
	transport     Transport
	vocab         *vocab.Vocabulary
	notifier      Notifier
	identity      IdentityResolver
	logger        *zap.Logger
	maxConcurrent int
	newSuffix     func() string
}

// Option configures a Repository
type Option func(*Repository)

// WithNotifier sets the presentation layer that is told about new and removed nodes
func WithNotifier(n Notifier) Option {
	return func(r *Repository) { r.notifier = n }
}

// WithIdentity sets how the current user's WebID is resolved
func WithIdentity(id IdentityResolver) Option {
	return func(r *Repository) { r.identity = id }
}

// WithVocabulary replaces the default vocabulary table
func WithVocabulary(v *vocab.Vocabulary) Option {
	return func(r *Repository) { r.vocab = v }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithMaxConcurrentFetches bounds how many neighbours are fetched at once
func WithMaxConcurrentFetches(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.maxConcurrent = n
		}
	}
}

// WithSuffixGenerator sets how new resource names are generated
func WithSuffixGenerator(fn func() string) Option {
	return func(r *Repository) { r.newSuffix = fn }
}

// NewRepository creates a new graph repository on top of a transport
func NewRepository(t Transport, opts ...Option) *Repository {
	r := &Repository{
		transport:     t,
		vocab:         vocab.Default(),
		notifier:      NopNotifier{},
		identity:      StaticIdentity{},
		logger:        logger.Get(),
		maxConcurrent: constants.DefaultMaxConcurrentFetches,
		newSuffix:     randomSuffix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Vocabulary returns the vocabulary table the repository works with
func (r *Repository) Vocabulary() *vocab.Vocabulary {
	return r.vocab
}

// randomSuffix returns a short name for a new resource. Uniqueness within
// the container is not checked.
func randomSuffix() string {
	return uuid.NewString()[:constants.RandomSuffixLength]
}
