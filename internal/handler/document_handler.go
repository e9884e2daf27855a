package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docmind/internal/engine"
	"github.com/xxxsen/docmind/internal/model"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
	"github.com/xxxsen/docmind/internal/pkg/response"
	"github.com/xxxsen/docmind/internal/retriever"
)

// DocumentStore keeps the document bodies that graph, DNA, insight and
// reindex operations read back.
type DocumentStore interface {
	Upsert(ctx context.Context, doc *model.Document) error
	Delete(ctx context.Context, ownerID, docID string) error
}

type DocumentHandler struct {
	engine *engine.Engine
	store  DocumentStore
}

func NewDocumentHandler(e *engine.Engine, store DocumentStore) *DocumentHandler {
	return &DocumentHandler{engine: e, store: store}
}

type indexRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type indexResponse struct {
	DocumentID string `json:"document_id"`
	Indexed    bool   `json:"indexed"`
}

// save stores the body before indexing. A document stored but not indexed is
// picked up by the reindex job.
func (h *DocumentHandler) save(c *gin.Context, req indexRequest) error {
	now := time.Now().Unix()
	return h.store.Upsert(c.Request.Context(), &model.Document{
		ID:      c.Param("id"),
		OwnerID: getOwnerID(c),
		Title:   req.Title,
		Content: req.Content,
		Ctime:   now,
		Mtime:   now,
	})
}

func (h *DocumentHandler) Ingest(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "invalid request")
		return
	}
	if err := h.save(c, req); err != nil {
		handleError(c, err)
		return
	}
	ok, err := h.engine.IngestDocument(c.Request.Context(), getOwnerID(c), c.Param("id"), req.Content, req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, indexResponse{DocumentID: c.Param("id"), Indexed: ok})
}

func (h *DocumentHandler) Update(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "invalid request")
		return
	}
	if err := h.save(c, req); err != nil {
		handleError(c, err)
		return
	}
	ok, err := h.engine.UpdateDocument(c.Request.Context(), getOwnerID(c), c.Param("id"), req.Content, req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, indexResponse{DocumentID: c.Param("id"), Indexed: ok})
}

// Delete removes the vectors and the stored body. A document that was only
// indexed has no body to remove.
func (h *DocumentHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	ok, err := h.engine.DeleteDocument(ctx, getOwnerID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.store.Delete(ctx, getOwnerID(c), c.Param("id")); err != nil && !errors.Is(err, appErr.ErrNotFound) {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"document_id": c.Param("id"), "deleted": ok})
}

type searchRequest struct {
	Query        string   `json:"query"`
	K            int      `json:"k"`
	DocumentIDs  []string `json:"document_ids"`
	Rerank       bool     `json:"rerank"`
	MinRelevance *float64 `json:"min_relevance"`
	MaxChars     int      `json:"max_chars"`
}

func (r searchRequest) options() retriever.Options {
	return retriever.Options{K: r.K, DocumentIDs: r.DocumentIDs, Rerank: r.Rerank, MinRelevance: r.MinRelevance}
}

func (h *DocumentHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "invalid request")
		return
	}
	chunks, err := h.engine.Search(c.Request.Context(), getOwnerID(c), req.Query, req.options())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chunks": chunks})
}

func (h *DocumentHandler) Context(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "invalid request")
		return
	}
	maxChars := req.MaxChars
	if maxChars <= 0 {
		maxChars = 4000
	}
	text, chunks, err := h.engine.BuildContext(c.Request.Context(), getOwnerID(c), req.Query, req.options(), maxChars)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"context": text, "chunks": chunks})
}
