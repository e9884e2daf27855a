package embedding

import (
	"context"
	"math"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/ai"
)

const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Embedder turns text into a Dimension-length unit vector. Implementations
// never fail; the hash scheme is the floor every path falls back to.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	Dimension() int
}

type FallbackEmbedder struct {
	enhanced ai.IEmbedder
	taskType string
	fallback *HashEmbedder
}

func NewFallbackEmbedder(enhanced ai.IEmbedder, taskType string) *FallbackEmbedder {
	return &FallbackEmbedder{enhanced: enhanced, taskType: taskType, fallback: NewHashEmbedder()}
}

func (f *FallbackEmbedder) Dimension() int {
	return Dimension
}

func (f *FallbackEmbedder) Embed(ctx context.Context, text string) []float32 {
	if f.enhanced == nil || text == "" {
		return f.fallback.Embed(ctx, text)
	}
	values, err := f.enhanced.Embed(ctx, text, f.taskType)
	if err != nil {
		logutil.GetLogger(ctx).Warn("enhanced embedding failed, using hash embedding",
			zap.String("model", f.enhanced.ModelName()), zap.Error(err))
		return f.fallback.Embed(ctx, text)
	}
	projected, ok := Project(values, Dimension)
	if !ok {
		logutil.GetLogger(ctx).Warn("enhanced embedding unusable, using hash embedding",
			zap.String("model", f.enhanced.ModelName()), zap.Int("size", len(values)))
		return f.fallback.Embed(ctx, text)
	}
	return projected
}

// Project folds values into dim buckets (index mod dim) and normalizes. It
// reports false for empty, non-finite or all-zero input.
func Project(values []float32, dim int) ([]float32, bool) {
	if len(values) == 0 {
		return nil, false
	}
	out := make([]float32, dim)
	nonZero := false
	for i, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, false
		}
		out[i%dim] += v
	}
	for _, v := range out {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		return nil, false
	}
	return Normalize(out), true
}
