// Package textutil holds the tokenizing and counting helpers shared by the
// chunker, relationship detector, DNA fingerprinter and insight synthesizer.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)
	blankLine       = regexp.MustCompile(`\n\s*\n`)
)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these",
		"those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too",
		"very", "can", "will", "just", "don", "should", "now", "not", "no", "nor", "have", "has", "had", "do",
		"does", "did", "which", "who", "whom", "what", "when", "where", "why", "how", "all", "any", "both",
		"each", "few", "more", "most", "other", "some", "only", "our", "ours", "you", "your", "yours", "they",
		"them", "their", "there", "here", "his", "her", "hers", "him", "she", "he", "we", "us", "i", "me", "my",
		"also", "may", "might", "must", "would", "could", "shall", "one", "because", "while", "until", "whether",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

func IsStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}

// Words returns every word token of text in its original case.
func Words(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

// Terms returns lowercased word tokens with stop-words and tokens shorter than
// minLen removed.
func Terms(text string, minLen int) []string {
	raw := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if len([]rune(t)) < minLen {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func TermFrequencies(text string, minLen int) map[string]int {
	freq := make(map[string]int)
	for _, t := range Terms(text, minLen) {
		freq[t]++
	}
	return freq
}

// Sentences splits text on terminal punctuation and drops empty fragments.
func Sentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || !hasLetterOrDigit(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Paragraphs splits on blank lines.
func Paragraphs(text string) []string {
	parts := blankLine.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Keywords returns the n most frequent terms (len >= 3), ties broken
// alphabetically so the output is stable.
func Keywords(text string, n int) []string {
	type kv struct {
		term  string
		count int
	}
	freq := TermFrequencies(text, 3)
	items := make([]kv, 0, len(freq))
	for t, c := range freq {
		items = append(items, kv{term: t, count: c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].count != items[j].count {
			return items[i].count > items[j].count
		}
		return items[i].term < items[j].term
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for _, it := range items[:n] {
		out = append(out, it.term)
	}
	return out
}

// Syllables estimates the syllable count of an English word by counting vowel
// groups, dropping a silent trailing "e". Every word has at least one.
func Syllables(word string) int {
	w := strings.ToLower(strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }))
	if w == "" {
		return 0
	}
	if len(w) <= 3 {
		return 1
	}
	count := 0
	prevVowel := false
	for _, r := range w {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Normalize lowercases text and collapses runs of whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
