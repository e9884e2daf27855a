package relationship

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/ai"
	"github.com/xxxsen/docmind/internal/concept"
	"github.com/xxxsen/docmind/internal/embedding"
	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/textutil"
)

const (
	referenceBonus      = 0.3
	conceptBonus        = 0.2
	structureBonus      = 0.1
	conceptOverlapMin   = 0.3
	conceptExpansionMin = 1.5
	structureMin        = 0.6
	llmGate             = 0.2
	llmConfidenceMin    = 0.6
	llmWeight           = 0.4
	excerptSize         = 1500
)

var (
	headingLine  = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+\S`)
	listLine     = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+\S`)
	codeFenceRow = regexp.MustCompile("(?m)^\\s*```")
)

type extensionVerdict struct {
	Extends    bool    `json:"extends"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// detectExtension checks whether the newer of a and b builds on the older.
// The edge reads newer -> older. Without a usable LLM verdict there is no
// edge.
func (d *Detector) detectExtension(ctx context.Context, a, b *model.Document) (model.RelationshipEdge, bool) {
	older, newer := a, b
	if b.Ctime < a.Ctime || (b.Ctime == a.Ctime && b.ID < a.ID) {
		older, newer = b, a
	}
	score, evidence := extensionScore(older, newer)
	if score <= llmGate || d.llm == nil {
		return model.RelationshipEdge{}, false
	}
	logger := logutil.GetLogger(ctx).With(zap.String("older", older.ID), zap.String("newer", newer.ID))
	prompt := fmt.Sprintf("Older document %q:\n%s\n\nNewer document %q:\n%s\n\n"+
		`Does the newer document extend the older one? Answer with JSON {"extends": true|false, "confidence": 0..1, "reason": "..."}.`,
		older.Title, excerpt(older.Content), newer.Title, excerpt(newer.Content))
	out, err := d.llm.Complete(ctx, extensionSystemPrompt, prompt, ai.CompletionOptions{Temperature: 0.1, MaxTokens: 256})
	if err != nil {
		logger.Warn("extension check unavailable", zap.Error(err))
		return model.RelationshipEdge{}, false
	}
	verdict, err := ai.ParseJSON[extensionVerdict](out)
	if err != nil {
		logger.Warn("extension response malformed", zap.Error(err))
		return model.RelationshipEdge{}, false
	}
	if !verdict.Extends || verdict.Confidence <= llmConfidenceMin {
		return model.RelationshipEdge{}, false
	}
	score = clamp01(score + clamp01(verdict.Confidence)*llmWeight)
	if verdict.Reason != "" {
		evidence = append(evidence, verdict.Reason)
	}
	return model.RelationshipEdge{
		SourceID:     newer.ID,
		TargetID:     older.ID,
		Type:         model.RelationExtends,
		Strength:     score,
		Evidence:     evidence,
		AutoDetected: true,
	}, true
}

const extensionSystemPrompt = "You judge whether a newer document builds on, expands or continues an older one. Respond with JSON only."

// extensionScore is the heuristic part of the extends check.
func extensionScore(older, newer *model.Document) (float64, []string) {
	var (
		score    float64
		evidence []string
	)
	if referencesTitleOrAuthor(newer, older) {
		score += referenceBonus
		evidence = append(evidence, "newer document references the older one")
	}
	oldConcepts := concept.Set(older.Content)
	newConcepts := concept.Set(newer.Content)
	if len(oldConcepts) > 0 {
		overlap := concept.Overlap(oldConcepts, newConcepts)
		expansion := float64(len(newConcepts)) / float64(len(oldConcepts))
		if overlap > conceptOverlapMin && expansion > conceptExpansionMin {
			score += conceptBonus
			evidence = append(evidence, fmt.Sprintf("concept overlap %.2f, expansion %.2f", overlap, expansion))
		}
	}
	if sim := StructuralSimilarity(older.Content, newer.Content); sim > structureMin {
		score += structureBonus
		evidence = append(evidence, fmt.Sprintf("structural similarity %.2f", sim))
	}
	return score, evidence
}

func referencesTitleOrAuthor(source, target *model.Document) bool {
	title := strings.TrimSpace(target.Title)
	if title != "" && strings.Contains(strings.ToLower(source.Content), strings.ToLower(title)) {
		return true
	}
	_, ok := authorMatch(source.Content, target)
	return ok
}

// StructuralSimilarity compares the heading, paragraph, list and code block
// ratios of two markdown texts by cosine.
func StructuralSimilarity(a, b string) float64 {
	return embedding.CosineSimilarity(structureRatios(a), structureRatios(b))
}

func structureRatios(text string) []float32 {
	counts := []float32{
		float32(len(headingLine.FindAllStringIndex(text, -1))),
		float32(len(textutil.Paragraphs(text))),
		float32(len(listLine.FindAllStringIndex(text, -1))),
		float32(len(codeFenceRow.FindAllStringIndex(text, -1)) / 2),
	}
	var total float32
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return counts
	}
	for i := range counts {
		counts[i] /= total
	}
	return counts
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptSize {
		return s
	}
	return string(r[:excerptSize])
}
