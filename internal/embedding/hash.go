package embedding

import (
	"context"
	"math"
	"strings"
)

const Dimension = 384

// HashEmbedder is the deterministic, network-free embedding scheme. Each
// lowercased whitespace token is hashed with a 32-bit rolling hash and spread
// over its bucket and the two neighbouring buckets.
type HashEmbedder struct{}

func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

func (h *HashEmbedder) Embed(_ context.Context, text string) []float32 {
	return HashEmbed(text)
}

func (h *HashEmbedder) Dimension() int {
	return Dimension
}

func HashEmbed(text string) []float32 {
	vec := make([]float32, Dimension)
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return vec
	}
	weight := 1 / math.Sqrt(float64(len(tokens)))
	acc := make([]float64, Dimension)
	for _, tok := range tokens {
		idx := bucket(tok)
		acc[idx] += weight
		if idx > 0 {
			acc[idx-1] += weight / 2
		}
		if idx < Dimension-1 {
			acc[idx+1] += weight / 2
		}
	}
	for i, v := range acc {
		vec[i] = float32(v)
	}
	return Normalize(vec)
}

func bucket(token string) int {
	var hash int32
	for _, r := range token {
		hash = hash*31 + int32(r)
	}
	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}
	return int(abs % Dimension)
}

// Normalize scales v to unit L2 length in place. Zero vectors are returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// CosineSimilarity returns 0 for mismatched lengths or zero-magnitude input.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}
