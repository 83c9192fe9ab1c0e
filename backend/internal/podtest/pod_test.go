package podtest

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"podgraph/backend/internal/rdf"
)

func do(t *testing.T, p *Pod, method, path, contentType, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, p.URL(path), strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := p.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPodPatchAppliesInsertAndDelete(t *testing.T) {
	p := New(t)
	s := rdf.IRI(p.URL("/doc#it"))
	a := rdf.NewTriple(s, rdf.IRI("https://schema.org/isRelatedTo"), rdf.IRI(p.URL("/a")))
	b := rdf.NewTriple(s, rdf.IRI("http://purl.org/dc/terms/title"), rdf.Literal("It"))

	resp := do(t, p, http.MethodPatch, "/doc", "application/sparql-update", rdf.InsertData(a, b))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, ok := p.Document("/doc")
	require.True(t, ok)
	assert.ElementsMatch(t, []rdf.Triple{a, b}, got)

	resp = do(t, p, http.MethodPatch, "/doc", "application/sparql-update", rdf.DeleteData(a))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got, _ = p.Document("/doc")
	assert.Equal(t, []rdf.Triple{b}, got)
}

func TestPodServesTurtleAndFiles(t *testing.T) {
	p := New(t)
	p.SetDocument("/me", rdf.NewTriple(rdf.IRI(p.URL("/me#me")), rdf.IRI("http://xmlns.com/foaf/0.1/knows"), rdf.IRI(p.URL("/b"))))

	resp := do(t, p, http.MethodGet, "/me", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	triples, err := rdf.ParseTurtle(bytes.NewReader(body), p.URL("/me"))
	require.NoError(t, err)
	assert.Len(t, triples, 1)

	resp = do(t, p, http.MethodPut, "/files/x.png", "image", "PNG")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data, ct, ok := p.File("/files/x.png")
	require.True(t, ok)
	assert.Equal(t, "PNG", string(data))
	assert.Equal(t, "image", ct)

	assert.Equal(t, http.StatusNotFound, do(t, p, http.MethodGet, "/nothing", "", "").StatusCode)
}

func TestPodFailureInjection(t *testing.T) {
	p := New(t)
	p.SetDocument("/b")
	p.Fail(http.MethodGet, "/b", http.StatusForbidden)

	assert.Equal(t, http.StatusForbidden, do(t, p, http.MethodGet, "/b", "", "").StatusCode)
	assert.Len(t, p.Requests(http.MethodGet), 1)
}
