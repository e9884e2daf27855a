package job

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/model"
)

type StaleDocumentLister interface {
	ListStaleDocuments(ctx context.Context, limit int) ([]*model.Document, error)
	MarkIndexed(ctx context.Context, ownerID, docID string, mtime int64) error
}

type DocumentIndexer interface {
	UpdateDocument(ctx context.Context, ownerID, docID, content, title string) (bool, error)
}

// ReindexJob re-ingests documents edited after their vectors were written,
// or never indexed at all.
type ReindexJob struct {
	docs    StaleDocumentLister
	indexer DocumentIndexer
	batch   int
}

func NewReindexJob(docs StaleDocumentLister, indexer DocumentIndexer, batch int) *ReindexJob {
	if batch <= 0 {
		batch = 20
	}
	return &ReindexJob{docs: docs, indexer: indexer, batch: batch}
}

func (j *ReindexJob) Name() string {
	return "reindex_documents"
}

// Run processes one batch. A document that fails to index is logged and
// left for the next run; only a failed listing aborts the run.
func (j *ReindexJob) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx).With(zap.String("job", j.Name()))
	docs, err := j.docs.ListStaleDocuments(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list stale documents: %w", err)
	}
	var indexed, failed int
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := j.indexer.UpdateDocument(ctx, doc.OwnerID, doc.ID, doc.Content, doc.Title)
		if err != nil {
			failed++
			logger.Warn("reindex document failed", zap.String("doc_id", doc.ID), zap.Error(err))
			continue
		}
		if ok {
			indexed++
		}
		if err := j.docs.MarkIndexed(ctx, doc.OwnerID, doc.ID, doc.Mtime); err != nil {
			logger.Warn("mark document indexed failed", zap.String("doc_id", doc.ID), zap.Error(err))
		}
	}
	logger.Info("reindex batch finished", zap.Int("stale", len(docs)), zap.Int("indexed", indexed), zap.Int("failed", failed))
	return nil
}
