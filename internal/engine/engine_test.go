package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docmind/internal/model"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
	"github.com/xxxsen/docmind/internal/retriever"
	"github.com/xxxsen/docmind/internal/vectorindex"
)

type memoryDocs struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func newMemoryDocs(docs ...*model.Document) *memoryDocs {
	m := &memoryDocs{docs: make(map[string]*model.Document)}
	for _, d := range docs {
		m.docs[d.OwnerID+"/"+d.ID] = d
	}
	return m
}

func (m *memoryDocs) Get(ctx context.Context, ownerID, docID string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[ownerID+"/"+docID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", docID, appErr.ErrNotFound)
	}
	return d, nil
}

func (m *memoryDocs) List(ctx context.Context, ownerID string, filter model.DocumentFilter) ([]*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Document
	for _, d := range m.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

type flakyIndex struct {
	*vectorindex.Memory
	failUpsert bool
	failQuery  bool
	queries    int
}

func (f *flakyIndex) Upsert(ctx context.Context, namespace string, records []model.VectorRecord) error {
	if f.failUpsert {
		return errors.New("index offline")
	}
	return f.Memory.Upsert(ctx, namespace, records)
}

func (f *flakyIndex) Query(ctx context.Context, namespace string, vector []float32, filter vectorindex.Filter, k int) ([]vectorindex.Candidate, error) {
	f.queries++
	if f.failQuery {
		return nil, errors.New("index offline")
	}
	return f.Memory.Query(ctx, namespace, vector, filter, k)
}

const (
	goText   = "goroutines and channels make concurrency simple in go programs"
	cookText = "sourdough bread needs flour water salt and a patient baker"
)

func newTestEngine(t *testing.T, docs *memoryDocs) (*Engine, *flakyIndex) {
	t.Helper()
	index := &flakyIndex{Memory: vectorindex.NewMemory()}
	e, err := New(Dependencies{Documents: docs, Index: index}, Config{})
	require.NoError(t, err)
	return e, index
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Dependencies{}, Config{})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestIngestAndSearch(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, newMemoryDocs())

	ok, err := e.IngestDocument(ctx, "u1", "go", goText, "Go")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = e.IngestDocument(ctx, "u1", "bread", cookText, "Bread")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := e.Search(ctx, "u1", "goroutines and channels", retriever.Options{K: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "go", got[0].DocumentID)
	require.Equal(t, "Go", got[0].Title)

	filtered, err := e.Search(ctx, "u1", "goroutines and channels", retriever.Options{K: 2, DocumentIDs: []string{"bread"}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "bread", filtered[0].DocumentID)

	other, err := e.Search(ctx, "u2", "goroutines and channels", retriever.Options{})
	require.NoError(t, err)
	require.Empty(t, other)

	_, err = e.Search(ctx, "", "goroutines", retriever.Options{})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestIngestEmptyContent(t *testing.T) {
	e, _ := newTestEngine(t, newMemoryDocs())
	ok, err := e.IngestDocument(context.Background(), "u1", "empty", "", "Empty")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = e.IngestDocument(context.Background(), "u1", "", "text", "t")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestIngestPropagatesIndexFailure(t *testing.T) {
	e, index := newTestEngine(t, newMemoryDocs())
	index.failUpsert = true
	ok, err := e.IngestDocument(context.Background(), "u1", "go", goText, "Go")
	require.Error(t, err)
	require.False(t, ok)
}

func TestSearchSurvivesIndexFailure(t *testing.T) {
	e, index := newTestEngine(t, newMemoryDocs())
	index.failQuery = true
	got, err := e.Search(context.Background(), "u1", "anything", retriever.Options{})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUpdateReplacesChunks(t *testing.T) {
	ctx := context.Background()
	e, index := newTestEngine(t, newMemoryDocs())
	long := strings.Repeat("Paragraph about storage engines and indexes.\n\n", 60)
	_, err := e.IngestDocument(ctx, "u1", "doc", long, "Storage")
	require.NoError(t, err)
	before, err := index.Get(ctx, vectorindex.Namespace("u1"), vectorindex.ByDocument("doc"), 0)
	require.NoError(t, err)
	require.Greater(t, len(before), 1)

	ok, err := e.UpdateDocument(ctx, "u1", "doc", "A short revision.", "Storage")
	require.NoError(t, err)
	require.True(t, ok)
	after, err := index.Get(ctx, vectorindex.Namespace("u1"), vectorindex.ByDocument("doc"), 0)
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.Equal(t, "A short revision.", after[0].Metadata.Text)
}

func TestDeleteInvalidatesSearchCache(t *testing.T) {
	ctx := context.Background()
	e, index := newTestEngine(t, newMemoryDocs())
	_, err := e.IngestDocument(ctx, "u1", "go", goText, "Go")
	require.NoError(t, err)

	got, err := e.Search(ctx, "u1", "channels", retriever.Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, err = e.Search(ctx, "u1", "channels", retriever.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, index.queries)

	ok, err := e.DeleteDocument(ctx, "u1", "go")
	require.NoError(t, err)
	require.True(t, ok)
	got, err = e.Search(ctx, "u1", "channels", retriever.Options{})
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, 2, index.queries)
}

func TestDocumentEmbedding(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, newMemoryDocs())
	doc := &model.Document{ID: "go", OwnerID: "u1", Content: goText}

	_, ok := e.DocumentEmbedding(ctx, doc)
	require.False(t, ok)

	_, err := e.IngestDocument(ctx, "u1", "go", goText, "Go")
	require.NoError(t, err)
	vec, ok := e.DocumentEmbedding(ctx, doc)
	require.True(t, ok)
	require.Equal(t, e.embedder.Embed(ctx, goText), vec)
}

func TestBuildRelationshipGraphIdenticalDocuments(t *testing.T) {
	ctx := context.Background()
	content := "Raft elects a leader. The leader must replicate every entry before commit."
	docs := newMemoryDocs(
		&model.Document{ID: "a", OwnerID: "u1", Title: "Consensus", Content: content, Ctime: 1},
		&model.Document{ID: "b", OwnerID: "u1", Title: "Consensus copy", Content: content, Ctime: 2},
		&model.Document{ID: "c", OwnerID: "u1", Title: "Bread", Content: cookText, Ctime: 3},
	)
	e, _ := newTestEngine(t, docs)
	for _, id := range []string{"a", "b"} {
		_, err := e.IngestDocument(ctx, "u1", id, content, "Consensus")
		require.NoError(t, err)
	}

	g, err := e.BuildRelationshipGraph(ctx, "u1", nil)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{g.Nodes[0].ID, g.Nodes[1].ID, g.Nodes[2].ID})

	var similar *model.RelationshipEdge
	for i := range g.Edges {
		edge := g.Edges[i]
		require.NotEqual(t, model.RelationContradicts, edge.Type)
		if edge.Type == model.RelationSimilarTo && edge.SourceID == "a" && edge.TargetID == "b" {
			similar = &edge
		}
	}
	require.NotNil(t, similar)
	require.GreaterOrEqual(t, similar.Strength, 0.99)
	for _, n := range g.Nodes {
		require.True(t, n.Position.X >= 0 && n.Position.X <= 800)
		require.True(t, n.Position.Y >= 0 && n.Position.Y <= 600)
	}

	subset, err := e.BuildRelationshipGraph(ctx, "u1", []string{"c", "a", "c"})
	require.NoError(t, err)
	require.Len(t, subset.Nodes, 2)
	require.Equal(t, "a", subset.Nodes[0].ID)

	_, err = e.BuildRelationshipGraph(ctx, "u1", []string{"missing"})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDNAOperations(t *testing.T) {
	ctx := context.Background()
	text := "# Guide\n\nInstall the tool. Run the tool with a config file.\n\n- step one\n- step two\n"
	docs := newMemoryDocs(
		&model.Document{ID: "d1", OwnerID: "u1", Title: "Guide", Content: text},
		&model.Document{ID: "d2", OwnerID: "u1", Title: "Guide", Content: text},
	)
	e, _ := newTestEngine(t, docs)

	sim, err := e.CompareDNA(ctx, "u1", "d1", "d2")
	require.NoError(t, err)
	require.InDelta(t, 1.0, sim.Overall, 1e-6)

	_, err = e.CompareDNA(ctx, "u1", "d1", "ghost")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	clusters, err := e.ClusterByDNA(ctx, "u1", []string{"d1", "d2"}, 0.9)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"d1", "d2"}}, clusters)

	similar, err := e.FindSimilarDocuments(ctx, "u1", "d1", 0.5, 5)
	require.NoError(t, err)
	require.Len(t, similar, 1)

	fp, err := e.ComputeDNA(ctx, "u1", "d3", text, "Guide")
	require.NoError(t, err)
	require.Len(t, fp.Semantic, model.SemanticDims)

	_, err = e.ComputeDNA(ctx, "", "d3", text, "Guide")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestDNAIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	docs := newMemoryDocs(
		&model.Document{ID: "a1", OwnerID: "alice", Title: "Go", Content: goText},
		&model.Document{ID: "a2", OwnerID: "alice", Title: "Go", Content: goText},
		&model.Document{ID: "b1", OwnerID: "bob", Title: "Bread", Content: cookText},
	)
	e, _ := newTestEngine(t, docs)

	_, err := e.CompareDNA(ctx, "alice", "a1", "a2")
	require.NoError(t, err)

	// a1 is cached for alice but bob cannot reach it
	_, err = e.CompareDNA(ctx, "bob", "a1", "b1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = e.FindSimilarDocuments(ctx, "bob", "a1", 0, 5)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = e.ClusterByDNA(ctx, "bob", []string{"a1", "b1"}, 0.5)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestComputeDNADoesNotReplaceStoredFingerprint(t *testing.T) {
	ctx := context.Background()
	docs := newMemoryDocs(
		&model.Document{ID: "a1", OwnerID: "alice", Title: "Go", Content: goText},
		&model.Document{ID: "a2", OwnerID: "alice", Title: "Go", Content: goText},
	)
	e, _ := newTestEngine(t, docs)

	sim, err := e.CompareDNA(ctx, "alice", "a1", "a2")
	require.NoError(t, err)
	require.InDelta(t, 1.0, sim.Overall, 1e-6)

	for _, owner := range []string{"alice", "bob"} {
		fp, err := e.ComputeDNA(ctx, owner, "a1", cookText, "Bread")
		require.NoError(t, err)
		require.Equal(t, "Bread", fp.Metadata.Title)
	}

	sim, err = e.CompareDNA(ctx, "alice", "a1", "a2")
	require.NoError(t, err)
	require.InDelta(t, 1.0, sim.Overall, 1e-6)
}

func TestFindCitationPathsUnknownEndpoint(t *testing.T) {
	docs := newMemoryDocs(&model.Document{ID: "a", OwnerID: "u1", Content: goText})
	e, _ := newTestEngine(t, docs)
	_, err := e.FindCitationPaths(context.Background(), "u1", "a", "zzz", 3)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestSynthesizeInsightsWithoutLLM(t *testing.T) {
	docs := newMemoryDocs(
		&model.Document{ID: "a", OwnerID: "u1", Title: "Go", Content: goText},
		&model.Document{ID: "b", OwnerID: "u1", Title: "Bread", Content: cookText},
	)
	e, _ := newTestEngine(t, docs)
	report, err := e.SynthesizeInsights(context.Background(), "u1", nil)
	require.NoError(t, err)
	require.Empty(t, report.Insights)
	require.Len(t, report.Metrics, 2)
}
