// Package relationship finds typed, weighted edges between pairs of
// documents: similar_to, references, contradicts and extends.
//
// DetectAll compares every unordered pair, so its cost grows as O(n²) in the
// number of documents. Callers bound the set or shard it by collection.
package relationship

import (
	"context"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/ai"
	"github.com/xxxsen/docmind/internal/model"
)

// EmbeddingSource supplies document-level vectors. ok is false when no vector
// exists and the detector falls back to TF-IDF.
type EmbeddingSource interface {
	DocumentEmbedding(ctx context.Context, doc *model.Document) ([]float32, bool)
}

type Config struct {
	SimilarityThreshold float64
	MaxClaims           int
}

type Detector struct {
	llm        ai.CompletionClient
	embeddings EmbeddingSource
	cfg        Config
}

// New builds a Detector. llm and embeddings may be nil; the sub-detectors
// that need them then produce no edge or use TF-IDF.
func New(llm ai.CompletionClient, embeddings EmbeddingSource, cfg Config) *Detector {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.7
	}
	if cfg.MaxClaims <= 0 {
		cfg.MaxClaims = 10
	}
	return &Detector{llm: llm, embeddings: embeddings, cfg: cfg}
}

// DetectPair runs every sub-detector on a and b. It never fails; LLM-backed
// checks that cannot complete contribute no edge.
func (d *Detector) DetectPair(ctx context.Context, a, b *model.Document) []model.RelationshipEdge {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_a", a.ID), zap.String("doc_b", b.ID))
	var edges []model.RelationshipEdge
	if edge, ok := d.detectSimilarity(ctx, a, b); ok {
		edges = append(edges, edge)
	}
	if edge, ok := detectReference(a, b); ok {
		edges = append(edges, edge)
	}
	if edge, ok := detectReference(b, a); ok {
		edges = append(edges, edge)
	}
	if edge, ok := d.detectContradiction(ctx, a, b); ok {
		edges = append(edges, edge)
	}
	if edge, ok := d.detectExtension(ctx, a, b); ok {
		edges = append(edges, edge)
	}
	logger.Debug("pair detection finished", zap.Int("edges", len(edges)))
	return edges
}

// DetectAll runs DetectPair over every unordered pair. Cancellation is checked
// between pairs; the edges found so far are returned with ctx.Err().
func (d *Detector) DetectAll(ctx context.Context, docs []*model.Document) ([]model.RelationshipEdge, error) {
	ordered := append([]*model.Document(nil), docs...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	var edges []model.RelationshipEdge
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if err := ctx.Err(); err != nil {
				return edges, err
			}
			edges = append(edges, d.DetectPair(ctx, ordered[i], ordered[j])...)
		}
	}
	logutil.GetLogger(ctx).Info("relationship detection finished",
		zap.Int("documents", len(ordered)), zap.Int("edges", len(edges)))
	return edges, nil
}

func clamp01(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
