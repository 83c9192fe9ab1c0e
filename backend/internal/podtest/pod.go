// Package podtest runs an in-memory Linked Data pod for tests. It serves
// Turtle documents, accepts PUT/PATCH/DELETE the way a pod server does, and
// records every request it sees.
package podtest

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"podgraph/backend/internal/constants"
	"podgraph/backend/internal/rdf"
)

// Request is a recorded request.
type Request struct {
	Method      string
	Path        string
	ContentType string
	Link        string
	Body        string
}

type file struct {
	contentType string
	data        []byte
}

// Pod is a fake pod server.
type Pod struct {
	server *httptest.Server

	mu       sync.Mutex
	docs     map[string]*rdf.Graph
	files    map[string]file
	failures map[string]int
	requests []Request
}

// New starts a pod and stops it when the test ends.
func New(t testing.TB) *Pod {
	gin.SetMode(gin.TestMode)
	p := &Pod{
		docs:     make(map[string]*rdf.Graph),
		files:    make(map[string]file),
		failures: make(map[string]int),
	}
	router := gin.New()
	router.Any("/*path", p.handle)
	p.server = httptest.NewServer(router)
	t.Cleanup(p.server.Close)
	return p
}

// URL returns the absolute URI of path on this pod.
func (p *Pod) URL(path string) string {
	return p.server.URL + path
}

// Base is the pod root, with a trailing slash, usable as a storage container.
func (p *Pod) Base() string {
	return p.server.URL + "/"
}

// Client returns an HTTP client wired to the pod.
func (p *Pod) Client() *http.Client {
	return p.server.Client()
}

// SetDocument stores a graph document at path.
func (p *Pod) SetDocument(path string, triples ...rdf.Triple) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs[path] = rdf.NewGraph(triples...)
}

// SetTurtle serves src verbatim at path, relative IRIs and all.
func (p *Pod) SetTurtle(path, src string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[path] = file{contentType: constants.ContentTypeTurtle, data: []byte(src)}
}

// Fail makes every request with method to path answer with status.
// An empty method matches all methods.
func (p *Pod) Fail(method, path string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[method+" "+path] = status
}

// Document returns the triples stored at path.
func (p *Pod) Document(path string) ([]rdf.Triple, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.docs[path]
	if !ok {
		return nil, false
	}
	return g.Triples(), true
}

// File returns a non-graph resource stored at path.
func (p *Pod) File(path string) ([]byte, string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.files[path]
	return f.data, f.contentType, ok
}

// Exists reports whether anything is stored at path.
func (p *Pod) Exists(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, doc := p.docs[path]
	_, f := p.files[path]
	return doc || f
}

// Requests returns recorded requests, filtered by method when non-empty.
func (p *Pod) Requests(method string) []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Request
	for _, r := range p.requests {
		if method == "" || r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// Path strips the pod origin from an absolute URI.
func (p *Pod) Path(uri string) string {
	return strings.TrimPrefix(uri, p.server.URL)
}

func (p *Pod) handle(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	path := c.Request.URL.Path
	contentType := c.GetHeader("Content-Type")

	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, Request{
		Method:      c.Request.Method,
		Path:        path,
		ContentType: contentType,
		Link:        c.GetHeader("Link"),
		Body:        string(body),
	})

	if status, ok := p.failures[c.Request.Method+" "+path]; ok {
		c.Status(status)
		return
	}
	if status, ok := p.failures[" "+path]; ok {
		c.Status(status)
		return
	}

	switch c.Request.Method {
	case http.MethodGet:
		p.get(c, path)
	case http.MethodPut:
		p.put(c, path, contentType, body)
	case http.MethodPatch:
		p.patch(c, path, contentType, body)
	case http.MethodDelete:
		p.delete(c, path)
	default:
		c.Status(http.StatusMethodNotAllowed)
	}
}

func (p *Pod) get(c *gin.Context, path string) {
	if g, ok := p.docs[path]; ok {
		data, err := rdf.SerializeTurtle(g.Triples())
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Data(http.StatusOK, constants.ContentTypeTurtle, data)
		return
	}
	if f, ok := p.files[path]; ok {
		c.Data(http.StatusOK, f.contentType, f.data)
		return
	}
	c.Status(http.StatusNotFound)
}

func (p *Pod) put(c *gin.Context, path, contentType string, body []byte) {
	if mediaType(contentType) == constants.ContentTypeTurtle {
		triples, err := rdf.ParseTurtle(bytes.NewReader(body), p.URL(path))
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		p.docs[path] = rdf.NewGraph(triples...)
		delete(p.files, path)
	} else {
		p.files[path] = file{contentType: contentType, data: body}
		delete(p.docs, path)
	}
	c.Status(http.StatusCreated)
}

var updateOp = regexp.MustCompile(`(?s)(INSERT|DELETE) DATA \{(.*?)\} ;`)

func (p *Pod) patch(c *gin.Context, path, contentType string, body []byte) {
	if mediaType(contentType) != constants.ContentTypeSparqlUpdate {
		c.Status(http.StatusUnsupportedMediaType)
		return
	}
	ops := updateOp.FindAllStringSubmatch(string(body), -1)
	if len(ops) == 0 {
		c.String(http.StatusBadRequest, "no update operations")
		return
	}

	g, ok := p.docs[path]
	if !ok {
		g = rdf.NewGraph()
	}
	for _, op := range ops {
		triples, err := rdf.ParseTurtle(strings.NewReader(op[2]), p.URL(path))
		if err != nil {
			c.String(http.StatusBadRequest, fmt.Sprintf("bad %s DATA block: %v", op[1], err))
			return
		}
		for _, t := range triples {
			if op[1] == "INSERT" {
				g.Add(t)
			} else {
				g.Remove(t)
			}
		}
	}
	p.docs[path] = g
	c.Status(http.StatusOK)
}

func (p *Pod) delete(c *gin.Context, path string) {
	_, doc := p.docs[path]
	_, f := p.files[path]
	if !doc && !f {
		c.Status(http.StatusNotFound)
		return
	}
	delete(p.docs, path)
	delete(p.files, path)
	c.Status(http.StatusOK)
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}
