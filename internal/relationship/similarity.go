package relationship

import (
	"context"
	"fmt"
	"math"

	"github.com/xxxsen/docmind/internal/embedding"
	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/textutil"
)

const minTermLen = 3

func (d *Detector) detectSimilarity(ctx context.Context, a, b *model.Document) (model.RelationshipEdge, bool) {
	score, method := d.similarity(ctx, a, b)
	if score <= d.cfg.SimilarityThreshold {
		return model.RelationshipEdge{}, false
	}
	return model.RelationshipEdge{
		SourceID:     a.ID,
		TargetID:     b.ID,
		Type:         model.RelationSimilarTo,
		Strength:     clamp01(score),
		Evidence:     []string{fmt.Sprintf("%s similarity %.2f", method, score)},
		AutoDetected: true,
	}, true
}

func (d *Detector) similarity(ctx context.Context, a, b *model.Document) (float64, string) {
	if d.embeddings != nil {
		va, okA := d.embeddings.DocumentEmbedding(ctx, a)
		vb, okB := d.embeddings.DocumentEmbedding(ctx, b)
		if okA && okB && !isZero(va) && !isZero(vb) {
			return embedding.CosineSimilarity(va, vb), "embedding"
		}
	}
	return TFIDFSimilarity(a.Content, b.Content), "tf-idf"
}

// TFIDFSimilarity is the cosine of the TF-IDF vectors of a and b, with the
// IDF taken over the two texts only: idf = ln(2/df) + 1.
func TFIDFSimilarity(a, b string) float64 {
	tfA := textutil.TermFrequencies(a, minTermLen)
	tfB := textutil.TermFrequencies(b, minTermLen)
	if len(tfA) == 0 || len(tfB) == 0 {
		return 0
	}
	idf := func(term string) float64 {
		df := 0
		if tfA[term] > 0 {
			df++
		}
		if tfB[term] > 0 {
			df++
		}
		return math.Log(2/float64(df)) + 1
	}
	var dot, na, nb float64
	for term, ca := range tfA {
		wa := float64(ca) * idf(term)
		na += wa * wa
		if cb, ok := tfB[term]; ok {
			dot += wa * float64(cb) * idf(term)
		}
	}
	for term, cb := range tfB {
		wb := float64(cb) * idf(term)
		nb += wb * wb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
