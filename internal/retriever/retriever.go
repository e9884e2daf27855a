// Package retriever assembles ranked context passages for a query: embed,
// fetch from the vector index, filter, optionally rerank, dedup and cache.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/ai"
	"github.com/xxxsen/docmind/internal/embedding"
	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/vectorindex"
)

const (
	defaultK          = 5
	defaultCacheSize  = 1000
	defaultCacheTTL   = 7 * 24 * time.Hour
	rerankSnippetSize = 500
)

type Options struct {
	K int `json:"k"`
	// DocumentIDs restricts results to these documents. nil means every
	// document of the owner.
	DocumentIDs []string `json:"document_ids"`
	Rerank      bool     `json:"rerank"`
	// MinRelevance drops hits below it. nil uses the configured default; an
	// explicit 0 keeps every hit.
	MinRelevance *float64 `json:"min_relevance,omitempty"`
}

// MinRelevance returns v as an explicit Options.MinRelevance.
func MinRelevance(v float64) *float64 {
	return &v
}

func (o Options) minRelevance() float64 {
	if o.MinRelevance == nil {
		return 0
	}
	return *o.MinRelevance
}

type Config struct {
	CacheSize    int
	CacheTTL     time.Duration
	DefaultK     int
	MinRelevance float64
}

type Retriever struct {
	index    vectorindex.Client
	embedder embedding.Embedder
	scorer   ai.CompletionClient
	cache    *resultCache
	cfg      Config
}

// New builds a Retriever. scorer may be nil, in which case rerank requests
// keep the vector ordering.
func New(index vectorindex.Client, embedder embedding.Embedder, scorer ai.CompletionClient, cfg Config) *Retriever {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = defaultK
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return &Retriever{
		index:    index,
		embedder: embedder,
		scorer:   scorer,
		cache:    newResultCache(cfg.CacheSize, cfg.CacheTTL),
		cfg:      cfg,
	}
}

// Retrieve never fails: an unreachable index or scorer degrades to fewer or
// unreranked results, and no match is an empty list.
func (r *Retriever) Retrieve(ctx context.Context, ownerID, query string, opts Options) []model.RelevantChunk {
	logger := logutil.GetLogger(ctx).With(zap.String("owner_id", ownerID))
	if strings.TrimSpace(query) == "" {
		return []model.RelevantChunk{}
	}
	opts = r.withDefaults(opts)
	if opts.DocumentIDs != nil && len(opts.DocumentIDs) == 0 {
		return []model.RelevantChunk{}
	}
	key := newCacheKey(ownerID, query, opts)
	if cached, ok := r.cache.get(key); ok {
		logger.Debug("rag cache hit", zap.Int("chunks", len(cached)))
		return cached
	}

	vector := r.embedder.Embed(ctx, query)
	fetch := opts.K
	if opts.Rerank {
		fetch = opts.K * 2
	}
	var filter vectorindex.Filter
	if opts.DocumentIDs != nil {
		filter = vectorindex.ByDocuments(opts.DocumentIDs)
	}
	candidates, err := r.index.Query(ctx, vectorindex.Namespace(ownerID), vector, filter, fetch)
	if err != nil {
		logger.Warn("vector index query failed, returning no context", zap.Error(err))
		return []model.RelevantChunk{}
	}

	chunks := make([]model.RelevantChunk, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c.Relevance < opts.minRelevance() {
			continue
		}
		meta := c.Record.Metadata
		// guard against an index that ignores the filter
		if !filter.Match(&meta) {
			continue
		}
		if meta.ContentHash != "" {
			if _, dup := seen[meta.ContentHash]; dup {
				continue
			}
			seen[meta.ContentHash] = struct{}{}
		}
		chunks = append(chunks, model.RelevantChunk{
			ChunkID:     c.Record.ID,
			DocumentID:  meta.DocumentID,
			Title:       meta.Title,
			Text:        meta.Text,
			Index:       meta.Index,
			ContentHash: meta.ContentHash,
			Relevance:   c.Relevance,
		})
	}
	if opts.Rerank && len(chunks) > 0 {
		chunks = r.rerank(ctx, query, chunks)
	}
	if len(chunks) > opts.K {
		chunks = chunks[:opts.K]
	}
	r.cache.add(key, ownerID, opts.DocumentIDs, chunks)
	logger.Debug("rag retrieve finished", zap.Int("candidates", len(candidates)), zap.Int("chunks", len(chunks)))
	return cloneChunks(chunks)
}

// InvalidateOwner drops every cached result of the owner.
func (r *Retriever) InvalidateOwner(ownerID string) int {
	return r.cache.removeOwner(ownerID)
}

// InvalidateDocument drops the cached results of the owner that could
// include chunks of docID.
func (r *Retriever) InvalidateDocument(ownerID, docID string) int {
	return r.cache.removeDocument(ownerID, docID)
}

func (r *Retriever) withDefaults(opts Options) Options {
	if opts.K <= 0 {
		opts.K = r.cfg.DefaultK
	}
	if opts.MinRelevance == nil {
		opts.MinRelevance = MinRelevance(r.cfg.MinRelevance)
	}
	return opts
}

func (r *Retriever) rerank(ctx context.Context, query string, chunks []model.RelevantChunk) []model.RelevantChunk {
	logger := logutil.GetLogger(ctx)
	if r.scorer == nil {
		return chunks
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nPassages:\n", query)
	for i, c := range chunks {
		fmt.Fprintf(&sb, "[%d] %s\n", i, truncate(c.Text, rerankSnippetSize))
	}
	fmt.Fprintf(&sb, "\nReturn a JSON array of %d numbers between 0 and 1, one relevance score per passage in order.", len(chunks))
	out, err := r.scorer.Complete(ctx, rerankSystemPrompt, sb.String(), ai.CompletionOptions{Temperature: 0, MaxTokens: 256})
	if err != nil {
		logger.Warn("rerank failed, keeping vector order", zap.Error(err))
		return chunks
	}
	scores, err := ai.ParseJSON[[]float64](out)
	if err != nil {
		logger.Warn("rerank response malformed, keeping vector order", zap.Error(err))
		return chunks
	}
	if len(scores) != len(chunks) {
		logger.Warn("rerank score count mismatch, keeping vector order",
			zap.Int("scores", len(scores)), zap.Int("chunks", len(chunks)))
		return chunks
	}
	reranked := cloneChunks(chunks)
	for i := range reranked {
		reranked[i].Relevance = clamp01(scores[i])
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Relevance > reranked[j].Relevance
	})
	return reranked
}

const rerankSystemPrompt = "You score how relevant each passage is to the query. Respond with a JSON array of numbers only."

// BuildContext renders chunks as a numbered context block for a downstream
// completion, stopping before maxChars would be exceeded. maxChars <= 0
// means no limit.
func BuildContext(chunks []model.RelevantChunk, maxChars int) string {
	var sb strings.Builder
	for i, c := range chunks {
		title := c.Title
		if title == "" {
			title = c.DocumentID
		}
		entry := fmt.Sprintf("[%d] %s (relevance %.2f)\n%s\n\n", i+1, title, c.Relevance, strings.TrimSpace(c.Text))
		if maxChars > 0 && sb.Len()+len(entry) > maxChars {
			break
		}
		sb.WriteString(entry)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
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

func cloneChunks(in []model.RelevantChunk) []model.RelevantChunk {
	out := make([]model.RelevantChunk, len(in))
	copy(out, in)
	return out
}
