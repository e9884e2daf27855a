package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docmind/internal/model"
)

type staleDocs struct {
	docs   []*model.Document
	err    error
	limit  int
	marked map[string]int64
}

func (s *staleDocs) ListStaleDocuments(ctx context.Context, limit int) ([]*model.Document, error) {
	s.limit = limit
	return s.docs, s.err
}

func (s *staleDocs) MarkIndexed(ctx context.Context, ownerID, docID string, mtime int64) error {
	if s.marked == nil {
		s.marked = make(map[string]int64)
	}
	s.marked[ownerID+"/"+docID] = mtime
	return nil
}

type recordingIndexer struct {
	calls []string
	fail  map[string]bool
}

func (r *recordingIndexer) UpdateDocument(ctx context.Context, ownerID, docID, content, title string) (bool, error) {
	r.calls = append(r.calls, ownerID+"/"+docID)
	if r.fail[docID] {
		return false, errors.New("index offline")
	}
	return content != "", nil
}

func TestReindexJobContinuesPastFailures(t *testing.T) {
	docs := &staleDocs{docs: []*model.Document{
		{ID: "a", OwnerID: "u1", Content: "alpha"},
		{ID: "b", OwnerID: "u1", Content: "beta"},
		{ID: "c", OwnerID: "u2", Content: "gamma"},
	}}
	indexer := &recordingIndexer{fail: map[string]bool{"b": true}}
	job := NewReindexJob(docs, indexer, 0)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 20, docs.limit)
	require.Equal(t, []string{"u1/a", "u1/b", "u2/c"}, indexer.calls)
	require.NotContains(t, docs.marked, "u1/b")
}

func TestReindexJobMarksChunklessDocuments(t *testing.T) {
	docs := &staleDocs{docs: []*model.Document{
		{ID: "a", OwnerID: "u1", Content: "alpha", Mtime: 10},
		{ID: "empty", OwnerID: "u1", Content: "", Mtime: 11},
	}}
	job := NewReindexJob(docs, &recordingIndexer{}, 5)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, map[string]int64{"u1/a": 10, "u1/empty": 11}, docs.marked)
}

func TestReindexJobListFailure(t *testing.T) {
	job := NewReindexJob(&staleDocs{err: errors.New("db down")}, &recordingIndexer{}, 5)
	require.Error(t, job.Run(context.Background()))
}

func TestReindexJobStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	indexer := &recordingIndexer{}
	job := NewReindexJob(&staleDocs{docs: []*model.Document{{ID: "a", OwnerID: "u1"}}}, indexer, 5)
	require.ErrorIs(t, job.Run(ctx), context.Canceled)
	require.Empty(t, indexer.calls)
}

type cutoffRecorder struct {
	cutoff int64
}

func (c *cutoffRecorder) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	c.cutoff = cutoff
	return 3, nil
}

func TestEmbeddingCacheCleanupCutoff(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	repo := &cutoffRecorder{}
	job := NewEmbeddingCacheCleanupJob(repo, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, now.AddDate(0, 0, -30).Unix(), repo.cutoff)
}
