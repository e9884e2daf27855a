package graph

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docmind/internal/model"
)

func edge(src, dst string, typ model.RelationshipType, strength float64) model.RelationshipEdge {
	return model.RelationshipEdge{SourceID: src, TargetID: dst, Type: typ, Strength: strength}
}

func TestAnalyzeChain(t *testing.T) {
	edges := []model.RelationshipEdge{
		edge("a", "b", model.RelationReferences, 0.5),
		edge("b", "c", model.RelationReferences, 0.5),
		edge("c", "x", model.RelationReferences, 0.9), // x is outside the node set
		edge("a", "c", model.RelationExtends, 0),      // zero strength is ignored
	}
	metrics := Analyze([]string{"a", "b", "c"}, edges)
	require.Len(t, metrics, 3)
	require.Equal(t, 1, metrics["a"].OutDegree)
	require.Equal(t, 0, metrics["a"].InDegree)
	require.Equal(t, 1, metrics["b"].InDegree)
	require.Equal(t, 1, metrics["b"].OutDegree)
	require.Equal(t, 0, metrics["c"].OutDegree)
	require.Equal(t, 1.0, metrics["b"].Betweenness)
	require.Equal(t, 0.0, metrics["a"].Betweenness)
	require.Equal(t, 0.0, metrics["c"].Betweenness)
	require.Equal(t, 0.0, metrics["b"].Clustering)
}

func TestBetweennessNormalization(t *testing.T) {
	// star through hub h plus a tail h -> t -> u
	edges := []model.RelationshipEdge{
		edge("a", "h", model.RelationSimilarTo, 0.8),
		edge("b", "h", model.RelationSimilarTo, 0.8),
		edge("h", "t", model.RelationReferences, 0.8),
		edge("t", "u", model.RelationReferences, 0.8),
	}
	metrics := Analyze([]string{"a", "b", "h", "t", "u"}, edges)
	max := 0.0
	for _, m := range metrics {
		require.GreaterOrEqual(t, m.Betweenness, 0.0)
		require.LessOrEqual(t, m.Betweenness, 1.0)
		if m.Betweenness > max {
			max = m.Betweenness
		}
	}
	require.Equal(t, 1.0, max)
	require.Equal(t, 1.0, metrics["h"].Betweenness)
	require.Greater(t, metrics["t"].Betweenness, 0.0)

	none := Analyze([]string{"a", "b"}, []model.RelationshipEdge{edge("a", "b", model.RelationReferences, 1)})
	require.Equal(t, 0.0, none["a"].Betweenness)
	require.Equal(t, 0.0, none["b"].Betweenness)
}

func TestClustering(t *testing.T) {
	triangle := []model.RelationshipEdge{
		edge("a", "b", model.RelationSimilarTo, 0.9),
		edge("b", "c", model.RelationSimilarTo, 0.9),
		edge("c", "a", model.RelationReferences, 0.9),
		edge("a", "d", model.RelationReferences, 0.9),
	}
	metrics := Analyze([]string{"a", "b", "c", "d"}, triangle)
	require.Equal(t, 1.0, metrics["b"].Clustering)
	require.InDelta(t, 1.0/3.0, metrics["a"].Clustering, 1e-9)
	require.Equal(t, 0.0, metrics["d"].Clustering)
	require.Equal(t, 2, metrics["b"].InDegree)
	require.Equal(t, 2, metrics["b"].OutDegree)
}

func TestFindPaths(t *testing.T) {
	edges := []model.RelationshipEdge{
		edge("a", "b", model.RelationReferences, 0.5),
		edge("b", "d", model.RelationReferences, 0.5),
		edge("a", "c", model.RelationReferences, 0.5),
		edge("c", "b", model.RelationReferences, 0.5),
		edge("d", "e", model.RelationReferences, 0.5),
		edge("e", "f", model.RelationReferences, 0.5),
	}
	paths := FindPaths(edges, "a", "d", 0)
	require.Equal(t, [][]string{{"a", "b", "d"}, {"a", "c", "b", "d"}}, paths)

	require.Empty(t, FindPaths(edges, "a", "f", 3))
	require.Equal(t, [][]string{{"a", "b", "d", "e", "f"}, {"a", "c", "b", "d", "e", "f"}}, FindPaths(edges, "a", "f", 5))
	require.Empty(t, FindPaths(edges, "d", "a", 3))
	require.Empty(t, FindPaths(edges, "a", "a", 3))

	undirected := []model.RelationshipEdge{edge("x", "y", model.RelationSimilarTo, 0.9)}
	require.Equal(t, [][]string{{"y", "x"}}, FindPaths(undirected, "y", "x", 1))
}

func TestStrongClusters(t *testing.T) {
	edges := []model.RelationshipEdge{
		edge("a", "b", model.RelationSimilarTo, 0.9),
		edge("c", "b", model.RelationReferences, 0.6),
		edge("c", "d", model.RelationReferences, 0.5),
		edge("e", "f", model.RelationExtends, 0.7),
	}
	clusters := StrongClusters([]string{"a", "b", "c", "d", "e", "f", "g"}, edges, 0.5)
	require.Equal(t, [][]string{{"a", "b", "c"}, {"e", "f"}}, clusters)
}

func TestLayout(t *testing.T) {
	nodes := []string{"a", "b", "c", "d"}
	edges := []model.RelationshipEdge{
		edge("a", "b", model.RelationSimilarTo, 1),
		edge("c", "d", model.RelationReferences, 0.5),
	}
	opts := LayoutOptions{Width: 400, Height: 300, Rand: rand.New(rand.NewPCG(7, 7))}
	first := Layout(nodes, edges, opts)
	require.Len(t, first, 4)
	for _, p := range first {
		require.GreaterOrEqual(t, p.X, 0.0)
		require.LessOrEqual(t, p.X, 400.0)
		require.GreaterOrEqual(t, p.Y, 0.0)
		require.LessOrEqual(t, p.Y, 300.0)
	}
	opts.Rand = rand.New(rand.NewPCG(7, 7))
	require.Equal(t, first, Layout(nodes, edges, opts))
}

func TestStepDoesNotMutateInput(t *testing.T) {
	nodes := []string{"a", "b"}
	prev := Positions{"a": {X: 100, Y: 100}, "b": {X: 110, Y: 100}}
	snapshot := Positions{"a": prev["a"], "b": prev["b"]}
	next := step(prev, nodes, []spring{{a: "a", b: "b", weight: 1}}, LayoutOptions{}.withDefaults())
	require.Equal(t, snapshot, prev)
	require.NotEqual(t, prev["a"], next["a"])
	// repulsion dominates at short range
	require.Less(t, next["a"].X, prev["a"].X)
	require.Greater(t, next["b"].X, prev["b"].X)
}
