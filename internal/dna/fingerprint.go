// Package dna computes per-document feature fingerprints (structure, style,
// complexity, topic, semantics) and compares and clusters documents by them.
package dna

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/docmind/internal/embedding"
	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/textutil"
)

const (
	defaultCacheSize  = 100
	defaultCacheTTL   = time.Hour
	semanticInputSize = 8000
	neutralSemantic   = 128
)

type Config struct {
	CacheSize int
	CacheTTL  time.Duration
}

type cacheEntry struct {
	fp          *model.DNAFingerprint
	contentHash string
}

type Fingerprinter struct {
	embedder embedding.Embedder
	cache    *expirable.LRU[string, *cacheEntry]
}

func New(embedder embedding.Embedder, cfg Config) *Fingerprinter {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if embedder == nil {
		embedder = embedding.NewHashEmbedder()
	}
	return &Fingerprinter{
		embedder: embedder,
		cache:    expirable.NewLRU[string, *cacheEntry](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

func cacheKey(ownerID, docID string) string {
	return ownerID + "\x00" + docID
}

// Fingerprint returns the cached fingerprint of the owner's docID when its
// content is unchanged, else extracts and caches a new one.
func (f *Fingerprinter) Fingerprint(ctx context.Context, ownerID, docID, content, title string) (*model.DNAFingerprint, error) {
	key := cacheKey(ownerID, docID)
	hash := textutil.Hash(title + "\x00" + content)
	if entry, ok := f.cache.Get(key); ok && entry.contentHash == hash {
		return entry.fp, nil
	}
	fp, err := f.Compute(ctx, docID, content, title)
	if err != nil {
		return nil, err
	}
	f.cache.Add(key, &cacheEntry{fp: fp, contentHash: hash})
	return fp, nil
}

// Compute extracts a fingerprint without touching the cache. The five
// extractors run concurrently.
func (f *Fingerprinter) Compute(ctx context.Context, docID, content, title string) (*model.DNAFingerprint, error) {
	fp := &model.DNAFingerprint{DocumentID: docID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fp.Structural = scale(extractStructural(content))
		return nil
	})
	g.Go(func() error {
		fp.Stylistic = scale(extractStylistic(content))
		return nil
	})
	g.Go(func() error {
		fp.Complexity = scale(extractComplexity(content))
		return nil
	})
	g.Go(func() error {
		fp.Topical = scale(extractTopical(content))
		return nil
	})
	g.Go(func() error {
		fp.Semantic = f.extractSemantic(gctx, content)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fp.Metadata = model.DNAMetadata{
		Title:          title,
		WordCount:      len(textutil.Words(content)),
		SentenceCount:  len(textutil.Sentences(content)),
		ParagraphCount: len(textutil.Paragraphs(content)),
		ComputedAt:     time.Now().Unix(),
	}
	logutil.GetLogger(ctx).Debug("dna fingerprint computed",
		zap.String("doc_id", docID), zap.Int("words", fp.Metadata.WordCount))
	return fp, nil
}

// Invalidate drops the cached fingerprint of the owner's docID.
func (f *Fingerprinter) Invalidate(ownerID, docID string) {
	f.cache.Remove(cacheKey(ownerID, docID))
}

// extractSemantic keeps the first SemanticDims values of the document
// embedding. An unusable embedding yields the neutral mid-value vector.
func (f *Fingerprinter) extractSemantic(ctx context.Context, content string) []float32 {
	vec := f.embedder.Embed(ctx, truncateRunes(content, semanticInputSize))
	if len(vec) < model.SemanticDims || isZero(vec) {
		out := make([]float32, model.SemanticDims)
		for i := range out {
			out[i] = neutralSemantic
		}
		return out
	}
	out := make([]float32, model.SemanticDims)
	copy(out, vec[:model.SemanticDims])
	return out
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
