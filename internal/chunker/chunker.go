package chunker

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/textutil"
)

const (
	DefaultTargetSize = 1000
	DefaultOverlap    = 200
	keywordsPerChunk  = 5
)

// Span is a half-open byte range [Start, End) of the source text.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

type Config struct {
	TargetSize int
	Overlap    int
}

type Chunker struct {
	target  int
	overlap int
}

func New(cfg Config) *Chunker {
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = DefaultTargetSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	return &Chunker{target: cfg.TargetSize, overlap: cfg.Overlap}
}

// Chunk splits a document into position-tracked chunks. Empty input yields no
// chunks.
func (c *Chunker) Chunk(ctx context.Context, docID, text string) []*model.Chunk {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID))
	spans, strategy := c.Split(text)
	logger.Debug("chunking completed",
		zap.Int("size", len(text)),
		zap.String("strategy", strategy),
		zap.Int("total_chunks", len(spans)),
	)
	chunks := make([]*model.Chunk, 0, len(spans))
	for i, sp := range spans {
		body := text[sp.Start:sp.End]
		chunks = append(chunks, &model.Chunk{
			ID:            fmt.Sprintf("%s:%d", docID, i),
			DocumentID:    docID,
			Text:          body,
			StartPosition: sp.Start,
			EndPosition:   sp.End,
			Index:         i,
			TotalChunks:   len(spans),
			ContentHash:   textutil.Hash(body),
			WordCount:     len(strings.Fields(body)),
			SentenceCount: len(textutil.Sentences(body)),
			Keywords:      textutil.Keywords(body, keywordsPerChunk),
		})
	}
	return chunks
}

// Split returns the chunk spans for text and the name of the strategy that
// produced them.
func (c *Chunker) Split(text string) ([]Span, string) {
	n := len(text)
	if n == 0 {
		return nil, "empty"
	}
	if n < c.target {
		return []Span{{Start: 0, End: n}}, "single"
	}
	var (
		best      []Span
		bestName  string
		bestScore = math.Inf(1)
	)
	for _, h := range heuristics {
		cuts := h.cuts(text)
		if len(cuts) == 0 {
			continue
		}
		spans := c.accumulate(text, unitsFromCuts(cuts, n))
		if len(spans) == 0 {
			continue
		}
		score := c.score(spans)
		if score < bestScore {
			best, bestName, bestScore = spans, h.name, score
		}
	}
	if best != nil {
		return best, bestName
	}
	return c.fixedWindows(text), "fixed"
}

// accumulate greedily packs units into chunks of roughly target size. Each new
// chunk is seeded with the trailing overlap of the previous one.
func (c *Chunker) accumulate(text string, units []Span) []Span {
	var out []Span
	start, end := 0, 0
	for _, u := range units {
		if end > start && u.End-start > c.target {
			out = append(out, Span{Start: start, End: end})
			start = c.nextStart(text, start, end)
		}
		end = u.End
	}
	if end > start {
		out = append(out, Span{Start: start, End: end})
	}
	return out
}

// nextStart backs off overlap bytes from end. When that would not move past
// the previous start the overlap is dropped so the loop always advances.
func (c *Chunker) nextStart(text string, prevStart, end int) int {
	next := end - c.overlap
	if next <= prevStart {
		return end
	}
	for next < end && !utf8.RuneStart(text[next]) {
		next++
	}
	return next
}

func (c *Chunker) score(spans []Span) float64 {
	target := float64(c.target)
	total := 0.0
	for _, sp := range spans {
		size := float64(sp.Len())
		total += math.Abs(size-target) / target
		if size < 0.3*target {
			total += 1
		}
		if size > 1.5*target {
			total += 0.5
		}
	}
	return total / float64(len(spans))
}

// fixedWindows slices text into target-sized windows, moving each boundary to
// the nearest whitespace or punctuation within 20% of the target.
func (c *Chunker) fixedWindows(text string) []Span {
	n := len(text)
	slack := c.target / 5
	var out []Span
	start := 0
	for start < n {
		end := start + c.target
		if end >= n {
			end = n
		} else {
			end = findBreak(text, end, slack, start)
		}
		out = append(out, Span{Start: start, End: end})
		if end >= n {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		for next < end && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
	return out
}

func findBreak(text string, at, slack, floor int) int {
	for i := at; i > at-slack && i > floor+1; i-- {
		if isBreak(text[i-1]) {
			return i
		}
	}
	for i := at + 1; i <= at+slack && i < len(text); i++ {
		if isBreak(text[i-1]) {
			return i
		}
	}
	for at < len(text) && !utf8.RuneStart(text[at]) {
		at++
	}
	return at
}

func isBreak(b byte) bool {
	switch b {
	case ' ', '\n', '\t', '\r', '.', ',', ';', ':', '!', '?':
		return true
	}
	return false
}

func unitsFromCuts(cuts []int, n int) []Span {
	units := make([]Span, 0, len(cuts)+1)
	prev := 0
	for _, cut := range cuts {
		if cut <= prev || cut >= n {
			continue
		}
		units = append(units, Span{Start: prev, End: cut})
		prev = cut
	}
	units = append(units, Span{Start: prev, End: n})
	return units
}
