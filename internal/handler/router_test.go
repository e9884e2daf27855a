package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docmind/internal/engine"
	"github.com/xxxsen/docmind/internal/middleware"
	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/errcode"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
	"github.com/xxxsen/docmind/internal/vectorindex"
)

type staticDocs map[string]*model.Document

func (s staticDocs) Get(ctx context.Context, ownerID, docID string) (*model.Document, error) {
	if d, ok := s[docID]; ok && d.OwnerID == ownerID {
		return d, nil
	}
	return nil, appErr.ErrNotFound
}

func (s staticDocs) List(ctx context.Context, ownerID string, filter model.DocumentFilter) ([]*model.Document, error) {
	var out []*model.Document
	for _, d := range s {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s staticDocs) Upsert(ctx context.Context, doc *model.Document) error {
	if prev, ok := s[doc.ID]; ok {
		if prev.OwnerID != doc.OwnerID {
			return appErr.ErrConflict
		}
		doc.Ctime = prev.Ctime
	}
	s[doc.ID] = doc
	return nil
}

func (s staticDocs) Delete(ctx context.Context, ownerID, docID string) error {
	if d, ok := s[docID]; ok && d.OwnerID == ownerID {
		delete(s, docID)
		return nil
	}
	return appErr.ErrNotFound
}

func newTestRouter(t *testing.T, docs staticDocs) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e, err := engine.New(engine.Dependencies{Documents: docs, Index: vectorindex.NewMemory()}, engine.Config{})
	require.NoError(t, err)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), RouterDeps{
		Documents: NewDocumentHandler(e, docs),
		Analysis:  NewAnalysisHandler(e),
	})
	return r
}

func do(r *gin.Engine, method, path, owner, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(middleware.OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIngestThenSearch(t *testing.T) {
	r := newTestRouter(t, staticDocs{})
	rec := do(r, http.MethodPost, "/api/v1/documents/d1", "u1", `{"title":"Go","content":"goroutines and channels"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"indexed":true`)
	require.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = do(r, http.MethodPost, "/api/v1/search", "u1", `{"query":"channels"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"document_id":"d1"`)

	rec = do(r, http.MethodPost, "/api/v1/context", "u1", `{"query":"channels"}`)
	require.Contains(t, rec.Body.String(), `[1] Go`)
}

func TestMissingOwnerRejected(t *testing.T) {
	r := newTestRouter(t, staticDocs{})
	rec := do(r, http.MethodPost, "/api/v1/search", "", `{"query":"x"}`)
	require.Contains(t, rec.Body.String(), strconv.Itoa(errcode.ErrUnauthorized))
}

func TestCompareDNAErrors(t *testing.T) {
	r := newTestRouter(t, staticDocs{
		"d1": {ID: "d1", OwnerID: "u1", Title: "A", Content: "Some text here."},
	})
	rec := do(r, http.MethodGet, "/api/v1/dna/compare?a=d1", "u1", "")
	require.Contains(t, rec.Body.String(), strconv.Itoa(errcode.ErrInvalid))

	rec = do(r, http.MethodGet, "/api/v1/dna/compare?a=d1&b=ghost", "u1", "")
	require.Contains(t, rec.Body.String(), strconv.Itoa(errcode.ErrNotFound))

	rec = do(r, http.MethodGet, "/api/v1/dna/compare?a=d1&b=d1", "u1", "")
	require.Contains(t, rec.Body.String(), `"document_id_1":"d1"`)
}

func TestGraphRoute(t *testing.T) {
	r := newTestRouter(t, staticDocs{
		"a": {ID: "a", OwnerID: "u1", Title: "A", Content: "raft leader election and log replication"},
		"b": {ID: "b", OwnerID: "u1", Title: "B", Content: "raft leader election and log replication"},
	})
	rec := do(r, http.MethodPost, "/api/v1/graph", "u1", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"type":"similar_to"`)
}

func TestPostedDocumentsReachGraph(t *testing.T) {
	docs := staticDocs{}
	r := newTestRouter(t, docs)
	for _, id := range []string{"a", "b"} {
		rec := do(r, http.MethodPost, "/api/v1/documents/"+id, "u1",
			`{"title":"Raft","content":"raft leader election and log replication"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Len(t, docs, 2)

	rec := do(r, http.MethodPost, "/api/v1/graph", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"a"`)
	require.Contains(t, rec.Body.String(), `"type":"similar_to"`)

	rec = do(r, http.MethodPost, "/api/v1/documents/a", "u2", `{"title":"x","content":"taken id"}`)
	require.Contains(t, rec.Body.String(), strconv.Itoa(errcode.ErrConflict))

	rec = do(r, http.MethodDelete, "/api/v1/documents/a", "u1", "")
	require.Contains(t, rec.Body.String(), `"deleted":true`)
	require.NotContains(t, docs, "a")

	rec = do(r, http.MethodGet, "/api/v1/dna/compare?a=a&b=b", "u1", "")
	require.Contains(t, rec.Body.String(), strconv.Itoa(errcode.ErrNotFound))
}
