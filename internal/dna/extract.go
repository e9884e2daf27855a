package dna

import (
	"math"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/textutil"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var lexicons = [][]string{
	// technical
	{"code", "function", "api", "server", "database", "algorithm", "software", "system", "network", "interface",
		"deploy", "query", "cache", "protocol", "compile", "runtime", "library", "config", "binary", "thread"},
	// scientific
	{"hypothesis", "experiment", "theory", "research", "analysis", "evidence", "study", "sample", "measurement",
		"result", "results", "method", "observation", "data", "variable", "control", "significant", "model"},
	// business
	{"market", "revenue", "customer", "strategy", "sales", "profit", "growth", "management", "investment",
		"cost", "stakeholder", "product", "budget", "quarter", "roi", "pricing", "brand"},
	// educational
	{"learn", "learning", "lesson", "student", "students", "course", "teach", "tutorial", "example", "exercise",
		"understand", "chapter", "guide", "practice", "quiz", "concept", "explain"},
	// narrative
	{"story", "character", "once", "felt", "said", "remember", "journey", "night", "heart", "told", "walked",
		"dream", "suddenly", "morning", "home", "smiled"},
}

// structural: lines, paragraphs, h1, h2, h3, bullet items, ordered items,
// code blocks.
func extractStructural(content string) []float32 {
	out := make([]float32, model.StructuralDims)
	if strings.TrimSpace(content) == "" {
		return out
	}
	out[0] = float32(strings.Count(strings.TrimRight(content, "\n"), "\n") + 1)
	source := []byte(content)
	doc := markdown.Parser().Parse(text.NewReader(source))
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Paragraph:
			out[1]++
		case *ast.Heading:
			if n.Level >= 1 && n.Level <= 3 {
				out[1+n.Level]++
			}
		case *ast.List:
			items := float32(n.ChildCount())
			if n.IsOrdered() {
				out[6] += items
			} else {
				out[5] += items
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			out[7]++
		}
		return ast.WalkContinue, nil
	})
	return out
}

// stylistic: mean and stddev sentence length in words, mean word length,
// exclamations, questions, commas per sentence, vocabulary richness.
func extractStylistic(content string) []float32 {
	out := make([]float32, model.StylisticDims)
	sentences := textutil.Sentences(content)
	words := textutil.Words(content)
	if len(sentences) == 0 || len(words) == 0 {
		return out
	}
	lengths := make([]float64, len(sentences))
	var sum float64
	for i, s := range sentences {
		lengths[i] = float64(len(textutil.Words(s)))
		sum += lengths[i]
	}
	mean := sum / float64(len(sentences))
	var variance float64
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(sentences))

	var letters int
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		letters += len([]rune(w))
		unique[strings.ToLower(w)] = struct{}{}
	}
	out[0] = float32(mean)
	out[1] = float32(math.Sqrt(variance))
	out[2] = float32(float64(letters) / float64(len(words)))
	out[3] = float32(strings.Count(content, "!"))
	out[4] = float32(strings.Count(content, "?"))
	out[5] = float32(float64(strings.Count(content, ",")) / float64(len(sentences)))
	out[6] = float32(float64(len(unique)) / float64(len(words)) * 100)
	return out
}

// complexity: Flesch-derived difficulty, complex word ratio, average
// paragraph length (words/100, capped at 1), max indentation depth.
func extractComplexity(content string) []float32 {
	out := make([]float32, model.ComplexityDims)
	words := textutil.Words(content)
	sentences := textutil.Sentences(content)
	if len(words) == 0 || len(sentences) == 0 {
		return out
	}
	var syllables, complexWords int
	for _, w := range words {
		n := textutil.Syllables(w)
		syllables += n
		if n >= 3 {
			complexWords++
		}
	}
	wordsPerSentence := float64(len(words)) / float64(len(sentences))
	syllablesPerWord := float64(syllables) / float64(len(words))
	flesch := 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
	out[0] = float32(clamp(100-flesch, 0, 100))
	out[1] = float32(float64(complexWords) / float64(len(words)))
	if paragraphs := textutil.Paragraphs(content); len(paragraphs) > 0 {
		avg := float64(len(words)) / float64(len(paragraphs)) / 100
		out[2] = float32(math.Min(avg, 1))
	}
	out[3] = float32(maxIndentDepth(content))
	return out
}

// maxIndentDepth counts two spaces or one tab as a level.
func maxIndentDepth(content string) int {
	max := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		width := 0
		for _, r := range line {
			if r == ' ' {
				width++
			} else if r == '\t' {
				width += 2
			} else {
				break
			}
		}
		if depth := width / 2; depth > max {
			max = depth
		}
	}
	return max
}

// topical: per-100-word hits for each lexicon followed by the counts of the
// ten most frequent keywords, padded to TopicalDims.
func extractTopical(content string) []float32 {
	out := make([]float32, model.TopicalDims)
	words := textutil.Words(strings.ToLower(content))
	if len(words) == 0 {
		return out
	}
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}
	for i, lexicon := range lexicons {
		hits := 0
		for _, term := range lexicon {
			hits += counts[term]
		}
		out[i] = float32(float64(hits) / float64(len(words)) * 100)
	}
	freq := textutil.TermFrequencies(content, 3)
	for i, kw := range textutil.Keywords(content, model.TopicalDims-len(lexicons)) {
		out[len(lexicons)+i] = float32(freq[kw])
	}
	return out
}

// scale maps v onto [0, 255] by its own maximum. An all-zero or negative
// vector becomes all zero.
func scale(v []float32) []float32 {
	var max float32
	for _, x := range v {
		if x > max {
			max = x
		}
	}
	out := make([]float32, len(v))
	if max <= 0 {
		return out
	}
	for i, x := range v {
		if x > 0 {
			out[i] = x / max * 255
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
