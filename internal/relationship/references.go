package relationship

import (
	"regexp"
	"strings"

	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/textutil"
)

const (
	referenceSignalCount = 4
	titleWordCoverage    = 0.7
	significantWordLen   = 4
)

var (
	quotedSpan    = regexp.MustCompile(`"([^"\n]+)"|“([^”\n]+)”|'([^'\n]{3,})'`)
	authorMention = regexp.MustCompile(`\b(?:[Bb]y|[Ff]rom|[Aa]ccording to)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	authorLine    = regexp.MustCompile(`(?im)^\s*(?:author|written by|by)\s*[:\s]\s*(.+)$`)
)

// detectReference reports whether source appears to cite target. The edge is
// directed source -> target.
func detectReference(source, target *model.Document) (model.RelationshipEdge, bool) {
	evidence := referenceSignals(source, target)
	if len(evidence) == 0 {
		return model.RelationshipEdge{}, false
	}
	strength := float64(len(evidence)) / referenceSignalCount
	if strength > 1 {
		strength = 1
	}
	return model.RelationshipEdge{
		SourceID:     source.ID,
		TargetID:     target.ID,
		Type:         model.RelationReferences,
		Strength:     strength,
		Evidence:     evidence,
		AutoDetected: true,
	}, true
}

// referenceSignals returns one evidence line per matched signal.
func referenceSignals(source, target *model.Document) []string {
	title := strings.TrimSpace(target.Title)
	content := source.Content
	lower := strings.ToLower(content)
	var evidence []string

	if title != "" && strings.Contains(lower, strings.ToLower(title)) {
		evidence = append(evidence, "mentions title \""+title+"\"")
	}
	significant := significantWords(title)
	if len(significant) > 0 && quotedContains(content, significant[0]) {
		evidence = append(evidence, "quotes \""+significant[0]+"\"")
	}
	if len(significant) > 0 {
		words := make(map[string]struct{})
		for _, w := range textutil.Words(lower) {
			words[w] = struct{}{}
		}
		hit := 0
		for _, w := range significant {
			if _, ok := words[w]; ok {
				hit++
			}
		}
		if float64(hit)/float64(len(significant)) >= titleWordCoverage {
			evidence = append(evidence, "shares most title words")
		}
	}
	if name, ok := authorMatch(content, target); ok {
		evidence = append(evidence, "cites author "+name)
	}
	return evidence
}

// significantWords are the lowercased title words longer than four
// characters, stop-words excluded, in title order.
func significantWords(title string) []string {
	var out []string
	for _, w := range textutil.Words(strings.ToLower(title)) {
		if len([]rune(w)) > significantWordLen && !textutil.IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}

func quotedContains(content, word string) bool {
	for _, m := range quotedSpan.FindAllStringSubmatch(content, -1) {
		for _, group := range m[1:] {
			if group != "" && strings.Contains(strings.ToLower(group), word) {
				return true
			}
		}
	}
	return false
}

// authorMatch looks for "by/from/according to Name" in content whose name
// appears in the target's author line or title.
func authorMatch(content string, target *model.Document) (string, bool) {
	var targetAuthors []string
	for _, m := range authorLine.FindAllStringSubmatch(target.Content, 3) {
		targetAuthors = append(targetAuthors, strings.ToLower(strings.TrimSpace(m[1])))
	}
	if target.Title != "" {
		targetAuthors = append(targetAuthors, strings.ToLower(target.Title))
	}
	if len(targetAuthors) == 0 {
		return "", false
	}
	for _, m := range authorMention.FindAllStringSubmatch(content, -1) {
		name := strings.ToLower(m[1])
		// a single capitalized word after "from" is usually not a person
		if !strings.Contains(name, " ") {
			continue
		}
		for _, author := range targetAuthors {
			if strings.Contains(author, name) {
				return m[1], true
			}
		}
	}
	return "", false
}
