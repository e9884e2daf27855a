package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/docmind/internal/model"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
	"github.com/xxxsen/docmind/internal/retriever"
	"github.com/xxxsen/docmind/internal/vectorindex"
)

// IngestDocument chunks, embeds and indexes a document. It reports false
// without error when the content yields no chunk. Vector index failures are
// returned so the caller can retry; a partially indexed document is never
// reported as success.
func (e *Engine) IngestDocument(ctx context.Context, ownerID, docID, content, title string) (bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return false, err
	}
	if docID == "" {
		return false, fmt.Errorf("document id is required: %w", appErr.ErrInvalid)
	}
	logger := opLogger(ctx, "ingest", zap.String("owner_id", ownerID), zap.String("doc_id", docID))
	chunks := e.chunker.Chunk(ctx, docID, content)
	if len(chunks) == 0 {
		logger.Warn("document has no indexable content")
		return false, nil
	}
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vectors[i] = e.embedder.Embed(gctx, c.Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	namespace := vectorindex.Namespace(ownerID)
	now := time.Now().Unix()
	records := make([]model.VectorRecord, 0, len(chunks))
	for i, c := range chunks {
		records = append(records, model.VectorRecord{
			ID:        c.ID,
			Vector:    vectors[i],
			Namespace: namespace,
			Metadata: model.ChunkMetadata{
				DocumentID:    docID,
				OwnerID:       ownerID,
				Title:         title,
				Text:          c.Text,
				Index:         c.Index,
				TotalChunks:   c.TotalChunks,
				StartPosition: c.StartPosition,
				EndPosition:   c.EndPosition,
				ContentHash:   c.ContentHash,
				Keywords:      c.Keywords,
				Ctime:         now,
			},
		})
	}
	if err := e.index.Upsert(ctx, namespace, records); err != nil {
		logger.Error("upsert chunk vectors failed", zap.Error(err))
		return false, fmt.Errorf("index document %s: %w", docID, err)
	}
	e.invalidate(ownerID, docID)
	logger.Info("document indexed", zap.Int("chunks", len(records)))
	return true, nil
}

// UpdateDocument replaces every vector of the document: the old chunks are
// deleted first so a shorter revision leaves no stale tail.
func (e *Engine) UpdateDocument(ctx context.Context, ownerID, docID, content, title string) (bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return false, err
	}
	if _, err := e.index.DeleteWhere(ctx, vectorindex.Namespace(ownerID), vectorindex.ByDocument(docID)); err != nil {
		return false, fmt.Errorf("remove old vectors of %s: %w", docID, err)
	}
	e.invalidate(ownerID, docID)
	return e.IngestDocument(ctx, ownerID, docID, content, title)
}

func (e *Engine) DeleteDocument(ctx context.Context, ownerID, docID string) (bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return false, err
	}
	if docID == "" {
		return false, fmt.Errorf("document id is required: %w", appErr.ErrInvalid)
	}
	removed, err := e.index.DeleteWhere(ctx, vectorindex.Namespace(ownerID), vectorindex.ByDocument(docID))
	if err != nil {
		return false, fmt.Errorf("delete vectors of %s: %w", docID, err)
	}
	e.invalidate(ownerID, docID)
	opLogger(ctx, "delete", zap.String("owner_id", ownerID), zap.String("doc_id", docID)).
		Info("document vectors removed", zap.Int("removed", removed))
	return true, nil
}

// Search never fails because of the embedder, the LLM or the vector index;
// those degrade to a shorter or empty result.
func (e *Engine) Search(ctx context.Context, ownerID, query string, opts retriever.Options) ([]model.RelevantChunk, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return e.retriever.Retrieve(ctx, ownerID, query, opts), nil
}

// BuildContext searches and formats the hits as a numbered context block.
func (e *Engine) BuildContext(ctx context.Context, ownerID, query string, opts retriever.Options, maxChars int) (string, []model.RelevantChunk, error) {
	chunks, err := e.Search(ctx, ownerID, query, opts)
	if err != nil {
		return "", nil, err
	}
	return retriever.BuildContext(chunks, maxChars), chunks, nil
}

// DocumentEmbedding returns the vector of the document's first indexed
// chunk. Documents that were never ingested report false so relationship
// detection falls back to term statistics.
func (e *Engine) DocumentEmbedding(ctx context.Context, doc *model.Document) ([]float32, bool) {
	if doc == nil || doc.OwnerID == "" {
		return nil, false
	}
	records, err := e.index.Get(ctx, vectorindex.Namespace(doc.OwnerID), vectorindex.ByDocument(doc.ID), 1)
	if err != nil {
		opLogger(ctx, "document_embedding", zap.String("doc_id", doc.ID)).Warn("read first chunk vector failed", zap.Error(err))
		return nil, false
	}
	if len(records) == 0 {
		return nil, false
	}
	if vec := records[0].Vector; !isZero(vec) {
		return vec, true
	}
	vec := e.embedder.Embed(ctx, records[0].Metadata.Text)
	return vec, !isZero(vec)
}

func (e *Engine) invalidate(ownerID, docID string) {
	e.retriever.InvalidateOwner(ownerID)
	e.dna.Invalidate(ownerID, docID)
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
