package graph

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"podgraph/backend/internal/rdf"
	"podgraph/backend/internal/vocab"
	perrors "podgraph/backend/pkg/errors"
)

func TestGetGraphMapAtURI(t *testing.T) {
	f := newFixture(t)
	me := rdf.IRI(f.pod.URL("/me#me"))
	a := rdf.IRI(f.pod.URL("/a"))
	b := rdf.IRI(f.pod.URL("/b"))
	toA := rdf.NewTriple(me, vocab.IsRelatedTo, a)
	toB := rdf.NewTriple(me, vocab.Knows, b)
	aTitle := rdf.NewTriple(a, vocab.Title, rdf.Literal("A"))
	f.pod.SetDocument("/me", toA, toB)
	f.pod.SetDocument("/a", aTitle)
	f.pod.Fail(http.MethodGet, "/b", http.StatusNotFound)

	got, err := f.repo.GetGraphMapAtURI(context.Background(), f.pod.URL("/me"))
	require.NoError(t, err)

	want := GraphMap{
		{URI: f.pod.URL("/me"), Triples: []rdf.Triple{toA, toB}},
		{URI: a.Value, Triples: []rdf.Triple{aTitle}, Connection: vocab.IsRelatedTo.Value},
		{URI: b.Value, Connection: vocab.Knows.Value, Unavailable: true},
	}
	require.NotEmpty(t, got)
	assert.Equal(t, want[0].URI, got[0].URI, "center comes first")

	// the pod's encoder may regroup the center's links, so neighbour order is not fixed here
	sortTriples := cmpopts.SortSlices(func(x, y rdf.Triple) bool { return x.NT() < y.NT() })
	sortNodes := cmpopts.SortSlices(func(x, y GraphNode) bool { return x.URI < y.URI })
	if diff := cmp.Diff(want, got, sortTriples, sortNodes, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("graph map mismatch (-want +got):\n%s", diff)
	}
}

func TestGetGraphMapFollowsCenterLinkOrder(t *testing.T) {
	f := newFixture(t)
	f.pod.SetTurtle("/me", `<#me> <`+vocab.IsRelatedTo.Value+`> <a> .
<#me> <`+vocab.Knows.Value+`> <b> .
<#me> <`+vocab.IsRelatedTo.Value+`> <c> .
`)
	for _, path := range []string{"/a", "/b", "/c"} {
		f.pod.SetDocument(path)
	}

	got, err := f.repo.GetGraphMapAtURI(context.Background(), f.pod.URL("/me"))
	require.NoError(t, err)

	var uris []string
	for _, n := range got {
		uris = append(uris, n.URI)
	}
	assert.Equal(t, []string{f.pod.URL("/me"), f.pod.URL("/a"), f.pod.URL("/b"), f.pod.URL("/c")}, uris)
}

func TestGetGraphMapResolvesRelativeLinks(t *testing.T) {
	f := newFixture(t)
	f.pod.SetTurtle("/notes/center", `@prefix schema: <https://schema.org/> .
<#me> schema:isRelatedTo <a>, <../profile/card>, <./> .
`)
	f.pod.SetDocument("/notes/a", rdf.NewTriple(rdf.IRI(f.pod.URL("/notes/a")), vocab.Title, rdf.Literal("A")))
	f.pod.SetDocument("/profile/card")
	f.pod.SetDocument("/notes/")

	got, err := f.repo.GetGraphMapAtURI(context.Background(), f.pod.URL("/notes/center"))
	require.NoError(t, err)
	require.Len(t, got, 4)

	byURI := make(map[string]GraphNode)
	for _, n := range got[1:] {
		byURI[n.URI] = n
	}
	for _, path := range []string{"/notes/a", "/profile/card", "/notes/"} {
		n, ok := byURI[f.pod.URL(path)]
		if assert.True(t, ok, path) {
			assert.False(t, n.Unavailable, path)
		}
	}
	var fetched []string
	for _, r := range f.pod.Requests(http.MethodGet) {
		fetched = append(fetched, r.Path)
	}
	assert.ElementsMatch(t, []string{"/notes/center", "/notes/a", "/profile/card", "/notes/"}, fetched)

	center := rdf.IRI(f.pod.URL("/notes/center#me"))
	found, err := f.repo.FindTriples(context.Background(), f.pod.URL("/notes/center"),
		rdf.Exactly(rdf.NewTriple(center, vocab.IsRelatedTo, rdf.IRI(f.pod.URL("/notes/a")))))
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestGetGraphMapLengthIgnoresFailures(t *testing.T) {
	for _, failing := range []int{0, 1, 3, 5} {
		t.Run(fmt.Sprintf("%d failing", failing), func(t *testing.T) {
			f := newFixture(t)
			me := rdf.IRI(f.pod.URL("/me#me"))

			var center []rdf.Triple
			for i := 0; i < 5; i++ {
				path := fmt.Sprintf("/n%d", i)
				center = append(center, rdf.NewTriple(me, vocab.IsRelatedTo, rdf.IRI(f.pod.URL(path))))
				if i < failing {
					f.pod.Fail(http.MethodGet, path, http.StatusInternalServerError)
				} else {
					f.pod.SetDocument(path, rdf.NewTriple(rdf.IRI(f.pod.URL(path)), vocab.Title, rdf.Literal(path)))
				}
			}
			// not allow-listed, never followed
			center = append(center, rdf.NewTriple(me, vocab.Title, rdf.Literal("Me")))
			center = append(center, rdf.NewTriple(me, vocab.Maker, rdf.IRI(f.pod.URL("/n0"))))
			f.pod.SetDocument("/me", center...)

			got, err := f.repo.GetGraphMapAtURI(context.Background(), me.Value)
			require.NoError(t, err)
			require.Len(t, got, 6)

			unavailable := 0
			for _, n := range got[1:] {
				if n.Unavailable {
					unavailable++
					assert.Empty(t, n.Triples)
				}
				assert.Equal(t, vocab.IsRelatedTo.Value, n.Connection)
			}
			assert.Equal(t, failing, unavailable)

			summary := f.logs.FilterMessage("Loading done").All()
			require.Len(t, summary, 1)
			assert.Equal(t, zapcore.InfoLevel, summary[0].Level)
			assert.Equal(t, int64(5), summary[0].ContextMap()["neighbours"])
			assert.Equal(t, int64(failing), summary[0].ContextMap()["skipped"])
		})
	}
}

func TestGetNeighbours(t *testing.T) {
	f := newFixture(t, WithMaxConcurrentFetches(2))
	me := rdf.IRI(f.pod.URL("/me#me"))
	ctx := context.Background()

	t.Run("no links resolves immediately", func(t *testing.T) {
		got, err := f.repo.GetNeighbours(ctx, []rdf.Triple{rdf.NewTriple(me, vocab.Title, rdf.Literal("Me"))})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.Empty(t, f.pod.Requests(http.MethodGet))
	})

	t.Run("order follows the center", func(t *testing.T) {
		var center []rdf.Triple
		var want []string
		for i := 0; i < 6; i++ {
			path := fmt.Sprintf("/o%d", i)
			f.pod.SetDocument(path)
			center = append(center, rdf.NewTriple(me, vocab.Knows, rdf.IRI(f.pod.URL(path))))
			want = append(want, f.pod.URL(path))
		}
		got, err := f.repo.GetNeighbours(ctx, center)
		require.NoError(t, err)

		var uris []string
		for _, n := range got {
			uris = append(uris, n.URI)
		}
		assert.Equal(t, want, uris)
	})

	t.Run("literal object is unavailable", func(t *testing.T) {
		got, err := f.repo.GetNeighbours(ctx, []rdf.Triple{rdf.NewTriple(me, vocab.Knows, rdf.Literal("Bob"))})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Unavailable)
		assert.Equal(t, vocab.Knows.Value, got[0].Connection)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := f.repo.GetNeighbours(cancelled, []rdf.Triple{rdf.NewTriple(me, vocab.Knows, rdf.IRI(f.pod.URL("/o0")))})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGetGraphMapUnavailableCenter(t *testing.T) {
	f := newFixture(t)

	got, err := f.repo.GetGraphMapAtURI(context.Background(), f.pod.URL("/missing"))
	require.NoError(t, err)
	assert.Equal(t, GraphMap{{URI: f.pod.URL("/missing"), Unavailable: true}}, got)

	_, err = f.repo.GetGraphMapAtURI(context.Background(), "")
	assert.True(t, perrors.IsErrorType(err, perrors.ErrorTypeInput))
}

func TestGetGraphMapAtIdentity(t *testing.T) {
	f := newFixture(t)
	me := rdf.IRI(f.user.WebID)
	f.pod.SetDocument("/profile/card", rdf.NewTriple(me, vocab.Title, rdf.Literal("Me")))

	got, err := f.repo.GetGraphMapAtIdentity(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.user.WebID, got[0].URI)
	assert.Len(t, got[0].Triples, 1)

	g := newFixture(t, WithIdentity(StaticIdentity{}))
	_, err = g.repo.GetGraphMapAtIdentity(context.Background())
	require.Error(t, err)
}
