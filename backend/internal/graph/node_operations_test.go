package graph

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"podgraph/backend/internal/rdf"
	"podgraph/backend/internal/vocab"
	perrors "podgraph/backend/pkg/errors"
)

func requireOwnerACL(t *testing.T, f *fixture, resourcePath, owner string) {
	t.Helper()
	aclPath := resourcePath + ".acl"
	triples, ok := f.pod.Document(aclPath)
	require.True(t, ok, "no access control document at %s", aclPath)

	acl := rdf.NewGraph(triples...)
	ownerAuth := rdf.IRI(f.pod.URL(aclPath + "#owner"))
	readAuth := rdf.IRI(f.pod.URL(aclPath + "#readall"))
	resource := rdf.IRI(f.pod.URL(resourcePath))

	for _, mode := range []rdf.Term{vocab.Control, vocab.Read, vocab.Write} {
		assert.True(t, acl.Has(rdf.NewTriple(ownerAuth, vocab.Mode, mode)), "owner lacks %s", mode)
	}
	assert.True(t, acl.Has(rdf.NewTriple(ownerAuth, vocab.AgentPred, rdf.IRI(owner))))
	assert.True(t, acl.Has(rdf.NewTriple(ownerAuth, vocab.AccessTo, resource)))
	assert.True(t, acl.Has(rdf.NewTriple(ownerAuth, vocab.AccessTo, rdf.IRI(f.pod.URL(aclPath)))))

	assert.True(t, acl.Has(rdf.NewTriple(readAuth, vocab.AgentClass, vocab.Agent)))
	assert.True(t, acl.Has(rdf.NewTriple(readAuth, vocab.AccessTo, resource)))
	assert.Len(t, acl.Match(rdf.Pattern{Subject: &readAuth, Predicate: rdf.Bind(vocab.Mode)}), 1)
	assert.True(t, acl.Has(rdf.NewTriple(readAuth, vocab.Mode, vocab.Read)))
}

func TestIssueAccessControl(t *testing.T) {
	f := newFixture(t)
	resource := f.pod.URL("/doc")

	aclURI, err := f.repo.IssueAccessControl(context.Background(), resource, f.user.WebID)
	require.NoError(t, err)
	assert.Equal(t, resource+".acl", aclURI)
	requireOwnerACL(t, f, "/doc", f.user.WebID)

	puts := f.pod.Requests(http.MethodPut)
	require.Len(t, puts, 1)
	assert.Equal(t, "text/turtle", puts[0].ContentType)
}

func TestIssueAccessControlFailure(t *testing.T) {
	f := newFixture(t)
	f.pod.Fail(http.MethodPut, "/doc.acl", http.StatusForbidden)

	aclURI, err := f.repo.IssueAccessControl(context.Background(), f.pod.URL("/doc"), f.user.WebID)
	require.Error(t, err)
	assert.Empty(t, aclURI)

	var aclErr *perrors.AccessControlError
	require.True(t, errors.As(err, &aclErr))
	assert.Equal(t, f.pod.URL("/doc.acl"), aclErr.ACLURI)
	assert.Equal(t, 1, f.logs.FilterMessage("Failed to issue access control").Len())
}

func TestCreateNode(t *testing.T) {
	f := newFixture(t)
	center := rdf.IRI(f.pod.URL("/me#me"))
	f.pod.SetDocument("/me")
	nodePath := "/n0d3x"
	nodeURI := f.pod.URL(nodePath)

	got, err := f.repo.CreateNode(context.Background(), NewNode{
		Actor:       f.user,
		Center:      Center{URI: center.Value},
		Title:       "Trip notes",
		Description: "What we saw",
		Kind:        vocab.NodeKindDefault,
	})
	require.NoError(t, err)
	assert.Equal(t, nodeURI, got)

	body, ok := f.pod.Document(nodePath)
	require.True(t, ok)
	node := rdf.IRI(nodeURI)
	assert.ElementsMatch(t, []rdf.Triple{
		rdf.NewTriple(node, vocab.Title, rdf.Literal("Trip notes")),
		rdf.NewTriple(node, vocab.Storage, rdf.IRI(f.pod.Base())),
		rdf.NewTriple(node, vocab.Maker, center),
		rdf.NewTriple(node, vocab.Description, rdf.Literal("What we saw")),
		rdf.NewTriple(node, vocab.Type, vocab.Document),
	}, body)

	centerDoc, _ := f.pod.Document("/me")
	assert.Equal(t, []rdf.Triple{rdf.NewTriple(center, vocab.IsRelatedTo, node)}, centerDoc)

	requireOwnerACL(t, f, nodePath, f.user.WebID)

	var link string
	for _, req := range f.pod.Requests(http.MethodPut) {
		if req.Path == nodePath {
			link = req.Link
		}
	}
	assert.Equal(t, `<http://www.w3.org/ns/ldp#Resource>; rel="type", <`+nodeURI+`.acl>; rel="acl"`, link)

	assert.Equal(t, []notification{{nodeURI, vocab.IsRelatedTo.Value}}, f.notifier.drawn)
}

func TestCreateNodeStepOrder(t *testing.T) {
	f := newFixture(t)
	f.pod.SetDocument("/me")

	_, err := f.repo.CreateNode(context.Background(), NewNode{
		Actor:  f.user,
		Center: Center{URI: f.pod.URL("/me#me")},
		Title:  "Ordered",
	})
	require.NoError(t, err)

	var writes []string
	for _, req := range f.pod.Requests("") {
		if req.Method != http.MethodGet {
			writes = append(writes, req.Method+" "+req.Path)
		}
	}
	assert.Equal(t, []string{"PATCH /me", "PUT /n0d3x.acl", "PUT /n0d3x"}, writes)
}

func TestCreateNodeKinds(t *testing.T) {
	tests := []struct {
		name     string
		kind     vocab.NodeKind
		wantType *rdf.Term
	}{
		{"default", vocab.NodeKindDefault, &vocab.Document},
		{"image", vocab.NodeKindImage, &vocab.Image},
		{"unknown", vocab.ParseNodeKind("video"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.repo.CreateNode(context.Background(), NewNode{
				Actor:  f.user,
				Center: Center{URI: f.pod.URL("/me#me")},
				Title:  "Kinded",
				Kind:   tt.kind,
			})
			require.NoError(t, err)

			body, _ := f.pod.Document("/n0d3x")
			types := rdf.NewGraph(body...).Match(rdf.Pattern{Predicate: rdf.Bind(vocab.Type)})
			if tt.wantType == nil {
				assert.Empty(t, types)
				return
			}
			require.Len(t, types, 1)
			assert.Equal(t, *tt.wantType, types[0].Object)
		})
	}
}

func TestCreateNodeUsesCenterStorage(t *testing.T) {
	f := newFixture(t)

	got, err := f.repo.CreateNode(context.Background(), NewNode{
		Actor:  f.user,
		Center: Center{URI: f.pod.URL("/me#me"), Storage: f.pod.URL("/projects")},
		Title:  "Scoped",
	})
	require.NoError(t, err)
	assert.Equal(t, f.pod.URL("/projects/n0d3x"), got)
	assert.True(t, f.pod.Exists("/projects/n0d3x"))
}

func TestCreateNodeWithFileAttachment(t *testing.T) {
	f := newFixture(t)
	image := []byte{0x89, 'P', 'N', 'G'}

	got, err := f.repo.CreateNode(context.Background(), NewNode{
		Actor:      f.user,
		Center:     Center{URI: f.pod.URL("/me#me")},
		Title:      "Picture",
		Kind:       vocab.NodeKindImage,
		Attachment: FileAttachment{Name: "cat.png", Data: image},
	})
	require.NoError(t, err)

	filePath := "/files/n0d3x-cat.png"
	data, contentType, ok := f.pod.File(filePath)
	require.True(t, ok)
	assert.Equal(t, image, data)
	assert.Equal(t, "image", contentType)
	requireOwnerACL(t, f, filePath, f.user.WebID)

	body, _ := f.pod.Document(f.pod.Path(got))
	assert.Contains(t, body, rdf.NewTriple(rdf.IRI(got), vocab.Img, rdf.IRI(f.pod.URL(filePath))))
}

func TestCreateNodeWithLinkAttachment(t *testing.T) {
	f := newFixture(t)
	existing := "https://images.example/sunset.jpg"

	got, err := f.repo.CreateNode(context.Background(), NewNode{
		Actor:      f.user,
		Center:     Center{URI: f.pod.URL("/me#me")},
		Title:      "Sunset",
		Attachment: LinkAttachment{URI: existing},
	})
	require.NoError(t, err)

	body, _ := f.pod.Document(f.pod.Path(got))
	assert.Contains(t, body, rdf.NewTriple(rdf.IRI(got), vocab.Img, rdf.IRI(existing)))
	assert.False(t, f.pod.Exists("/files/n0d3x-sunset.jpg"))
}

func TestCreateNodeOmitsFailedUpload(t *testing.T) {
	f := newFixture(t)
	f.pod.Fail(http.MethodPut, "/files/n0d3x-cat.png", http.StatusInsufficientStorage)

	got, err := f.repo.CreateNode(context.Background(), NewNode{
		Actor:      f.user,
		Center:     Center{URI: f.pod.URL("/me#me")},
		Title:      "Picture",
		Attachment: FileAttachment{Name: "cat.png", Data: []byte("x")},
	})
	require.NoError(t, err)

	body, _ := f.pod.Document(f.pod.Path(got))
	assert.Empty(t, rdf.NewGraph(body...).Match(rdf.Pattern{Predicate: rdf.Bind(vocab.Img)}))
}

func TestCreateNodeUploadErrorAbortsBeforeWriting(t *testing.T) {
	f := newFixture(t, WithIdentity(StaticIdentity{}))

	_, err := f.repo.CreateNode(context.Background(), NewNode{
		Actor:      f.user,
		Center:     Center{URI: f.pod.URL("/me#me")},
		Title:      "Picture",
		Attachment: FileAttachment{Name: "cat.png", Data: []byte("x")},
	})
	require.Error(t, err)
	assert.Empty(t, f.pod.Requests(http.MethodPatch))
	assert.Empty(t, f.pod.Requests(http.MethodPut))
	assert.Empty(t, f.notifier.drawn)
}

func TestCreateNodePartialFailures(t *testing.T) {
	tests := []struct {
		name            string
		failMethod      string
		failPath        string
		wantStep        CreationStep
		wantEdgeWritten bool
	}{
		{"link", http.MethodPatch, "/me", StepLink, false},
		{"access control", http.MethodPut, "/n0d3x.acl", StepAccessControl, true},
		{"body", http.MethodPut, "/n0d3x", StepBody, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.pod.Fail(tt.failMethod, tt.failPath, http.StatusInternalServerError)

			_, err := f.repo.CreateNode(context.Background(), NewNode{
				Actor:  f.user,
				Center: Center{URI: f.pod.URL("/me#me")},
				Title:  "Doomed",
			})
			require.Error(t, err)

			var nodeErr *NodeCreationError
			require.True(t, errors.As(err, &nodeErr))
			assert.Equal(t, tt.wantStep, nodeErr.Step)
			assert.Equal(t, tt.wantEdgeWritten, nodeErr.EdgeWritten)
			assert.Equal(t, f.pod.URL("/n0d3x"), nodeErr.NodeURI)
			assert.True(t, perrors.IsErrorType(err, perrors.ErrorTypeGraph))

			assert.False(t, f.pod.Exists("/n0d3x"))
			assert.Empty(t, f.notifier.drawn)
		})
	}
}

func TestCreateNodeDanglingEdgeCanBeSevered(t *testing.T) {
	f := newFixture(t)
	f.pod.SetDocument("/me")
	f.pod.Fail(http.MethodPut, "/n0d3x", http.StatusInternalServerError)
	ctx := context.Background()

	_, err := f.repo.CreateNode(ctx, NewNode{
		Actor:  f.user,
		Center: Center{URI: f.pod.URL("/me#me")},
		Title:  "Dangling",
	})
	var nodeErr *NodeCreationError
	require.True(t, errors.As(err, &nodeErr))
	require.True(t, nodeErr.EdgeWritten)

	require.NoError(t, f.repo.SeverLink(ctx, nodeErr.CenterURI, nodeErr.NodeURI, vocab.IsRelatedTo))
	doc, _ := f.pod.Document("/me")
	assert.Empty(t, doc)
}

func TestCreateNodeValidation(t *testing.T) {
	f := newFixture(t)
	center := Center{URI: f.pod.URL("/me#me")}

	tests := []struct {
		name string
		node NewNode
	}{
		{"missing title", NewNode{Actor: f.user, Center: center, Title: "  "}},
		{"missing center", NewNode{Actor: f.user, Title: "x"}},
		{"missing actor", NewNode{Center: center, Title: "x"}},
		{"no storage", NewNode{Actor: User{WebID: f.user.WebID}, Center: center, Title: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.repo.CreateNode(context.Background(), tt.node)
			require.Error(t, err)
			assert.True(t, perrors.IsErrorType(err, perrors.ErrorTypeInput))
		})
	}
	assert.Empty(t, f.pod.Requests(""))
}

func TestStoreFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("uploads with declared type", func(t *testing.T) {
		uri, err := f.repo.StoreFile(ctx, f.pod.Base(), FileAttachment{Name: "a.jpg", ContentType: "image/jpeg", Data: []byte("jpg")})
		require.NoError(t, err)
		assert.Equal(t, f.pod.URL("/files/n0d3x-a.jpg"), uri)
		_, contentType, ok := f.pod.File("/files/n0d3x-a.jpg")
		require.True(t, ok)
		assert.Equal(t, "image/jpeg", contentType)
	})

	t.Run("access control failure yields no uri", func(t *testing.T) {
		f.pod.Fail(http.MethodPut, "/files/n0d3x-b.jpg.acl", http.StatusForbidden)
		uri, err := f.repo.StoreFile(ctx, f.pod.Base(), FileAttachment{Name: "b.jpg", Data: []byte("jpg")})
		require.NoError(t, err)
		assert.Empty(t, uri)
		assert.False(t, f.pod.Exists("/files/n0d3x-b.jpg"))
	})

	t.Run("identity failure is an error", func(t *testing.T) {
		g := newFixture(t, WithIdentity(StaticIdentity{}))
		_, err := g.repo.StoreFile(ctx, g.pod.Base(), FileAttachment{Name: "c.jpg"})
		require.Error(t, err)
	})
}
