package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireCoverage(t *testing.T, text string, spans []Span) {
	t.Helper()
	require.NotEmpty(t, spans)
	require.Equal(t, 0, spans[0].Start)
	for i, sp := range spans {
		require.Less(t, sp.Start, sp.End, "span %d is empty", i)
		require.LessOrEqual(t, sp.End, len(text))
		if i > 0 {
			require.LessOrEqual(t, sp.Start, spans[i-1].End, "gap before span %d", i)
			require.Greater(t, sp.Start, spans[i-1].Start, "span %d does not advance", i)
		}
	}
	require.Equal(t, len(text), spans[len(spans)-1].End)
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	c := New(Config{TargetSize: 100, Overlap: 20})
	spans, strategy := c.Split("short text.")
	require.Equal(t, "single", strategy)
	require.Equal(t, []Span{{0, 11}}, spans)

	spans, _ = c.Split("")
	require.Empty(t, spans)
}

func TestSplitTinySentences(t *testing.T) {
	text := "A. B. C."
	c := New(Config{TargetSize: 2, Overlap: DefaultOverlap})
	spans, strategy := c.Split(text)
	require.Equal(t, "sentence", strategy)
	require.GreaterOrEqual(t, len(spans), 2)
	requireCoverage(t, text, spans)
	for _, sp := range spans {
		require.LessOrEqual(t, sp.Len(), len(text)-sp.Start)
	}
}

func TestSplitCoverageProperty(t *testing.T) {
	inputs := []string{
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 80),
		strings.Repeat("# Title\n\nSome paragraph text here.\n\n## Section\n\nMore words follow in this part.\n\n", 30),
		strings.Repeat("wordwithoutbreaks", 200),
		strings.Repeat("Is it done? Yes! Maybe... ", 60),
		strings.Repeat("日本語のテキスト。", 150),
	}
	configs := []Config{
		{TargetSize: 50, Overlap: 10},
		{TargetSize: 200, Overlap: 200},
		{TargetSize: 300, Overlap: 1000},
		{TargetSize: 7, Overlap: 0},
	}
	for _, cfg := range configs {
		c := New(cfg)
		for _, text := range inputs {
			spans, _ := c.Split(text)
			requireCoverage(t, text, spans)
		}
	}
}

func TestSplitPrefersHeadersForMarkdown(t *testing.T) {
	section := "## Part\n\n" + strings.Repeat("alpha beta gamma delta ", 8) + "\n\n"
	text := "# Doc\n\n" + strings.Repeat(section, 6)
	c := New(Config{TargetSize: len(section), Overlap: 0})
	spans, strategy := c.Split(text)
	requireCoverage(t, text, spans)
	require.Contains(t, []string{"header", "paragraph"}, strategy)
	for _, sp := range spans[1:] {
		require.True(t, strings.HasPrefix(text[sp.Start:], "## Part") || strings.HasPrefix(text[sp.Start:], "alpha"))
	}
}

func TestSplitFallsBackToFixedWindows(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50)
	c := New(Config{TargetSize: 100, Overlap: 20})
	spans, strategy := c.Split(text)
	require.Equal(t, "fixed", strategy)
	requireCoverage(t, text, spans)
	require.Equal(t, 80, spans[1].Start)
}

func TestFixedWindowsBreakAtWhitespace(t *testing.T) {
	c := New(Config{TargetSize: 10, Overlap: 0})
	text := "aaaaaaaa bbbbbbbbbbbbbbbbbbbbbbbbbbb"
	spans := c.fixedWindows(text)
	requireCoverage(t, text, spans)
	require.Equal(t, 9, spans[0].End)
}

func TestChunkPopulatesMetadata(t *testing.T) {
	text := strings.Repeat("Graphs connect documents. Vectors rank passages. ", 20)
	c := New(Config{TargetSize: 120, Overlap: 30})
	chunks := c.Chunk(context.Background(), "doc-1", text)
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		require.Equal(t, "doc-1", ch.DocumentID)
		require.Equal(t, i, ch.Index)
		require.Equal(t, len(chunks), ch.TotalChunks)
		require.Equal(t, text[ch.StartPosition:ch.EndPosition], ch.Text)
		require.NotEmpty(t, ch.ContentHash)
		require.Positive(t, ch.WordCount)
		require.Positive(t, ch.SentenceCount)
		require.NotEmpty(t, ch.Keywords)
	}
	require.Equal(t, "doc-1:0", chunks[0].ID)
}

func TestScorePenalizesTinyAndHugeChunks(t *testing.T) {
	c := New(Config{TargetSize: 100})
	require.InDelta(t, 0.0, c.score([]Span{{0, 100}}), 1e-9)
	require.InDelta(t, 0.9+1, c.score([]Span{{0, 10}}), 1e-9)
	require.InDelta(t, 1.0+0.5, c.score([]Span{{0, 200}}), 1e-9)
}
