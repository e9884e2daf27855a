package retriever

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/textutil"
)

type cacheEntry struct {
	ownerID     string
	documentIDs []string
	chunks      []model.RelevantChunk
}

// resultCache is a TTL and size bounded map from (owner, query hash, options)
// to a final chunk list. Concurrent writers for one key are last-write-wins.
type resultCache struct {
	lru *expirable.LRU[string, *cacheEntry]
}

func newResultCache(size int, ttl time.Duration) *resultCache {
	return &resultCache{lru: expirable.NewLRU[string, *cacheEntry](size, nil, ttl)}
}

func (c *resultCache) get(key string) ([]model.RelevantChunk, bool) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return cloneChunks(entry.chunks), true
}

func (c *resultCache) add(key, ownerID string, documentIDs []string, chunks []model.RelevantChunk) {
	c.lru.Add(key, &cacheEntry{
		ownerID:     ownerID,
		documentIDs: append([]string(nil), documentIDs...),
		chunks:      cloneChunks(chunks),
	})
}

func (c *resultCache) removeOwner(ownerID string) int {
	return c.removeIf(func(e *cacheEntry) bool { return e.ownerID == ownerID })
}

// removeDocument drops entries whose scope covers docID. An entry filtered
// to other documents can never contain docID and stays.
func (c *resultCache) removeDocument(ownerID, docID string) int {
	return c.removeIf(func(e *cacheEntry) bool {
		if e.ownerID != ownerID {
			return false
		}
		if e.documentIDs == nil {
			return true
		}
		for _, id := range e.documentIDs {
			if id == docID {
				return true
			}
		}
		return false
	})
}

func (c *resultCache) removeIf(match func(*cacheEntry) bool) int {
	removed := 0
	for _, key := range c.lru.Keys() {
		entry, ok := c.lru.Peek(key)
		if !ok || !match(entry) {
			continue
		}
		if c.lru.Remove(key) {
			removed++
		}
	}
	return removed
}

// newCacheKey hashes the normalized query and folds in every option that
// changes the result, so a filtered query never reads an unfiltered list.
func newCacheKey(ownerID, query string, opts Options) string {
	scope := "*"
	if opts.DocumentIDs != nil {
		ids := append([]string(nil), opts.DocumentIDs...)
		sort.Strings(ids)
		scope = strings.Join(ids, ",")
	}
	fingerprint := fmt.Sprintf("k=%d;rerank=%t;min=%g;docs=%s", opts.K, opts.Rerank, opts.minRelevance(), scope)
	return ownerID + "|" + textutil.Hash(textutil.Normalize(query)) + "|" + textutil.Hash(fingerprint)
}
