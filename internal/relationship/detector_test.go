package relationship

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docmind/internal/ai"
	"github.com/xxxsen/docmind/internal/embedding"
	"github.com/xxxsen/docmind/internal/model"
)

// scriptedLLM answers by matching a marker in the user prompt.
type scriptedLLM struct {
	contradictions string
	extension      string
	err            error
	calls          int
}

func (s *scriptedLLM) Complete(ctx context.Context, system, user string, opts ai.CompletionOptions) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if strings.Contains(user, "Document A claims") {
		return s.contradictions, nil
	}
	return s.extension, nil
}

type staticEmbeddings map[string][]float32

func (s staticEmbeddings) DocumentEmbedding(ctx context.Context, doc *model.Document) ([]float32, bool) {
	v, ok := s[doc.ID]
	return v, ok
}

const article = `# Vector Search

Vector search is a retrieval technique. Cosine distance is more robust than euclidean distance for text.
Indexes should be rebuilt after bulk imports. The HNSW structure is faster than brute force scanning.`

func edgesOfType(edges []model.RelationshipEdge, typ model.RelationshipType) []model.RelationshipEdge {
	var out []model.RelationshipEdge
	for _, e := range edges {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestIdenticalDocumentsAreSimilarNotContradictory(t *testing.T) {
	llm := &scriptedLLM{
		contradictions: `[{"claim1":"a","claim2":"b","explanation":"made up","severity":"high"}]`,
		extension:      `{"extends": false, "confidence": 0.1}`,
	}
	for name, embeddings := range map[string]EmbeddingSource{
		"tf-idf":    nil,
		"embedding": staticEmbeddings{"d1": embedding.HashEmbed(article), "d2": embedding.HashEmbed(article)},
	} {
		t.Run(name, func(t *testing.T) {
			d := New(llm, embeddings, Config{})
			a := &model.Document{ID: "d1", Title: "Vector Search", Content: article, Ctime: 1}
			b := &model.Document{ID: "d2", Title: "Vector Search", Content: article, Ctime: 2}
			edges := d.DetectPair(context.Background(), a, b)

			similar := edgesOfType(edges, model.RelationSimilarTo)
			require.Len(t, similar, 1)
			require.GreaterOrEqual(t, similar[0].Strength, 0.99)
			require.LessOrEqual(t, similar[0].Strength, 1.0)
			require.Empty(t, edgesOfType(edges, model.RelationContradicts))
		})
	}
}

func TestDetectContradictionsInvalidJSON(t *testing.T) {
	llm := &scriptedLLM{contradictions: "these documents clearly disagree about indexes"}
	d := New(llm, nil, Config{})
	a := &model.Document{ID: "a", Content: "Indexes should always be rebuilt after bulk imports. Brute force is slower than HNSW."}
	b := &model.Document{ID: "b", Content: "Indexes never need to be rebuilt after imports. Brute force is faster than HNSW."}

	found := d.DetectContradictions(context.Background(), a, b)
	require.NotNil(t, found)
	require.Empty(t, found)
	require.Equal(t, 1, llm.calls)

	edges := d.DetectPair(context.Background(), a, b)
	require.Empty(t, edgesOfType(edges, model.RelationContradicts))
}

func TestDetectContradictionsSeverity(t *testing.T) {
	llm := &scriptedLLM{contradictions: "```json\n" + `[
		{"claim1":"rebuild","claim2":"never rebuild","explanation":"opposite advice","severity":"Medium"},
		{"claim1":"slower","claim2":"faster","explanation":"opposite speed","severity":"low"},
		{"claim1":"x","claim2":"y","explanation":"bogus","severity":"catastrophic"}
	]` + "\n```"}
	d := New(llm, nil, Config{})
	a := &model.Document{ID: "a", Content: "Indexes should always be rebuilt after bulk imports. Brute force is slower than HNSW."}
	b := &model.Document{ID: "b", Content: "Indexes never need to be rebuilt after imports. Brute force is faster than HNSW."}

	edge, ok := d.detectContradiction(context.Background(), a, b)
	require.True(t, ok)
	require.Equal(t, "a", edge.SourceID)
	require.Equal(t, "b", edge.TargetID)
	require.Equal(t, 0.7, edge.Strength)
	require.Len(t, edge.Evidence, 2)
}

func TestLLMUnavailableYieldsNoLLMEdges(t *testing.T) {
	d := New(&scriptedLLM{err: ai.ErrUnavailable}, nil, Config{})
	a := &model.Document{ID: "a", Title: "Indexing Basics", Content: "Indexes should always be rebuilt after bulk imports.", Ctime: 1}
	b := &model.Document{ID: "b", Title: "Advanced", Content: "Building on Indexing Basics, indexes never need a rebuild after imports.", Ctime: 2}
	edges := d.DetectPair(context.Background(), a, b)
	require.Empty(t, edgesOfType(edges, model.RelationContradicts))
	require.Empty(t, edgesOfType(edges, model.RelationExtends))
	require.NotEmpty(t, edgesOfType(edges, model.RelationReferences))
}

func TestReferenceSignals(t *testing.T) {
	target := &model.Document{
		ID:      "t",
		Title:   "Distributed Consensus Protocols",
		Content: "Author: Leslie Lamport\n\nPaxos is a consensus protocol.",
	}
	source := &model.Document{
		ID: "s",
		Content: `As described in Distributed Consensus Protocols, the "distributed log" matters. ` +
			`According to Leslie Lamport the protocols are safe.`,
	}
	edge, ok := detectReference(source, target)
	require.True(t, ok)
	require.Equal(t, "s", edge.SourceID)
	require.Equal(t, "t", edge.TargetID)
	require.True(t, edge.Directed())
	require.Equal(t, 1.0, edge.Strength)
	require.Len(t, edge.Evidence, 4)

	_, ok = detectReference(target, source)
	require.False(t, ok)

	partial := &model.Document{ID: "p", Content: "We discuss consensus and distributed protocols."}
	edge, ok = detectReference(partial, target)
	require.True(t, ok)
	require.Equal(t, 0.25, edge.Strength)
}

func TestExtension(t *testing.T) {
	older := &model.Document{
		ID:      "old",
		Title:   "Intro To Caching",
		Content: "# Caching\n\nCaching is a technique. Memoization helps.\n\n- LRU eviction\n- TTL expiry",
		Ctime:   1,
	}
	newer := &model.Document{
		ID:    "new",
		Title: "Caching In Depth",
		Content: "# Caching\n\nThis follows Intro To Caching. Memoization helps. Serialization, replication and " +
			"invalidation matter for HTTP and CDN layers.\n\n- LRU eviction\n- TTL expiry",
		Ctime: 2,
	}

	t.Run("accepted", func(t *testing.T) {
		llm := &scriptedLLM{extension: `{"extends": true, "confidence": 0.9, "reason": "goes deeper"}`}
		edge, ok := New(llm, nil, Config{}).detectExtension(context.Background(), newer, older)
		require.True(t, ok)
		require.Equal(t, "new", edge.SourceID)
		require.Equal(t, "old", edge.TargetID)
		require.Equal(t, model.RelationExtends, edge.Type)
		require.Greater(t, edge.Strength, 0.66)
		require.LessOrEqual(t, edge.Strength, 1.0)
		require.Contains(t, edge.Evidence, "goes deeper")
	})

	t.Run("low confidence rejected", func(t *testing.T) {
		llm := &scriptedLLM{extension: `{"extends": true, "confidence": 0.6}`}
		_, ok := New(llm, nil, Config{}).detectExtension(context.Background(), older, newer)
		require.False(t, ok)
	})

	t.Run("no heuristic signal skips llm", func(t *testing.T) {
		llm := &scriptedLLM{extension: `{"extends": true, "confidence": 0.9}`}
		a := &model.Document{ID: "a", Content: "plain words here", Ctime: 1}
		b := &model.Document{ID: "b", Content: "other plain words", Ctime: 2}
		_, ok := New(llm, nil, Config{}).detectExtension(context.Background(), a, b)
		require.False(t, ok)
		require.Equal(t, 0, llm.calls)
	})
}

func TestTFIDFSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, TFIDFSimilarity("golang channels goroutines", "golang channels goroutines"), 1e-9)
	require.Equal(t, 0.0, TFIDFSimilarity("golang channels", "sourdough bread"))
	require.Equal(t, 0.0, TFIDFSimilarity("", "sourdough bread"))
	ab := TFIDFSimilarity("golang channels goroutines", "golang bread")
	ba := TFIDFSimilarity("golang bread", "golang channels goroutines")
	require.InDelta(t, ab, ba, 1e-12)
	require.Greater(t, ab, 0.0)
}

func TestDetectAllCancellation(t *testing.T) {
	docs := []*model.Document{
		{ID: "c", Content: "golang channels"},
		{ID: "a", Content: "golang channels"},
		{ID: "b", Content: "bread baking"},
	}
	d := New(nil, nil, Config{})
	edges, err := d.DetectAll(context.Background(), docs)
	require.NoError(t, err)
	similar := edgesOfType(edges, model.RelationSimilarTo)
	require.Len(t, similar, 1)
	require.Equal(t, "a", similar[0].SourceID)
	require.Equal(t, "c", similar[0].TargetID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	edges, err = d.DetectAll(ctx, docs)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, edges)
}

func TestExtractClaims(t *testing.T) {
	text := "Short one. Caching is faster than recomputing every request. Hello there friend of mine! " +
		"You should never cache secrets in shared layers."
	claims := ExtractClaims(text, 10)
	require.Equal(t, []string{
		"Caching is faster than recomputing every request.",
		"You should never cache secrets in shared layers.",
	}, claims)
	require.Len(t, ExtractClaims(text, 1), 1)
}
