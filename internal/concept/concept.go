// Package concept pulls candidate domain concepts out of free text with
// regex heuristics.
package concept

import (
	"regexp"
	"sort"
	"strings"

	"github.com/xxxsen/docmind/internal/pkg/textutil"
)

var (
	properNounPhrase = regexp.MustCompile(`\b[A-Z][a-z]+(?:[ \t]+(?:[A-Z][a-z]+|of|to|and|the)){0,3}[ \t]+[A-Z][a-z]+\b`)
	acronym          = regexp.MustCompile(`\b[A-Z]{2,}[0-9]*s?\b`)
	technicalTerm    = regexp.MustCompile(`\b[A-Za-z]{3,}(?:tion|ism|ology|ment|ity)\b`)
	definition       = regexp.MustCompile(`(?i)\b((?:[a-z][a-z0-9-]*[ \t]+){0,2}[a-z][a-z0-9-]*)[ \t]+(?:is an?|refers to|is defined as)\s`)
)

// Extract returns each concept (lowercased) with its occurrence count.
func Extract(text string) map[string]int {
	out := make(map[string]int)
	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || textutil.IsStopword(term) {
			return
		}
		out[term]++
	}
	for _, m := range properNounPhrase.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range acronym.FindAllString(text, -1) {
		add(strings.TrimSuffix(m, "s"))
	}
	for _, m := range technicalTerm.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range definition.FindAllStringSubmatch(text, -1) {
		add(trimStopwords(m[1]))
	}
	return out
}

// Set is Extract without counts.
func Set(text string) map[string]struct{} {
	freq := Extract(text)
	out := make(map[string]struct{}, len(freq))
	for k := range freq {
		out[k] = struct{}{}
	}
	return out
}

// Top returns the n most frequent concepts, ties broken alphabetically.
func Top(freq map[string]int, n int) []string {
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if n >= 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// Overlap is |a ∩ b| / |a|, 0 for an empty a.
func Overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	shared := 0
	for k := range a {
		if _, ok := b[k]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a))
}

func trimStopwords(phrase string) string {
	words := strings.Fields(phrase)
	for len(words) > 0 && textutil.IsStopword(words[0]) {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
