package relationship

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/ai"
	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/pkg/textutil"
)

const minClaimLen = 20

var claimPatterns = []*regexp.Regexp{
	// assertions
	regexp.MustCompile(`(?i)\b(?:is|are|was|were|has|have|always|never|cannot|can't|does not|do not|proves?|shows?|demonstrates?)\b`),
	// comparisons
	regexp.MustCompile(`(?i)\b(?:more|less|better|worse|faster|slower|greater|fewer|higher|lower|than|increases?|decreases?)\b`),
	// modals
	regexp.MustCompile(`(?i)\b(?:should|must|may|might|could|would|will)\b`),
}

var severityStrength = map[string]float64{
	"low":    0.4,
	"medium": 0.7,
	"high":   1.0,
}

// ExtractClaims returns up to max claim-like sentences of text, in order.
func ExtractClaims(text string, max int) []string {
	var claims []string
	for _, s := range textutil.Sentences(text) {
		if len(s) < minClaimLen {
			continue
		}
		for _, p := range claimPatterns {
			if p.MatchString(s) {
				claims = append(claims, s)
				break
			}
		}
		if len(claims) >= max {
			break
		}
	}
	return claims
}

// DetectContradictions asks the completion client to compare the claims of a
// and b. Any failure, including unparsable output, yields an empty list.
func (d *Detector) DetectContradictions(ctx context.Context, a, b *model.Document) []model.Contradiction {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_a", a.ID), zap.String("doc_b", b.ID))
	claimsA := ExtractClaims(a.Content, d.cfg.MaxClaims)
	claimsB := ExtractClaims(b.Content, d.cfg.MaxClaims)
	if len(claimsA) == 0 || len(claimsB) == 0 || sameClaims(claimsA, claimsB) {
		return []model.Contradiction{}
	}
	if d.llm == nil {
		return []model.Contradiction{}
	}
	prompt := fmt.Sprintf("Document A claims:\n%s\n\nDocument B claims:\n%s\n\n"+
		`Return a JSON array of contradictions: [{"claim1": "...", "claim2": "...", "explanation": "...", "severity": "low|medium|high"}]. `+
		"Return [] when the documents do not contradict each other.",
		numbered(claimsA), numbered(claimsB))
	out, err := d.llm.Complete(ctx, contradictionSystemPrompt, prompt, ai.CompletionOptions{Temperature: 0.1, MaxTokens: 1024})
	if err != nil {
		logger.Warn("contradiction check unavailable", zap.Error(err))
		return []model.Contradiction{}
	}
	found, err := ai.ParseJSON[[]model.Contradiction](out)
	if err != nil {
		logger.Warn("contradiction response malformed", zap.Error(err))
		return []model.Contradiction{}
	}
	valid := make([]model.Contradiction, 0, len(found))
	for _, c := range found {
		c.Severity = strings.ToLower(strings.TrimSpace(c.Severity))
		if _, ok := severityStrength[c.Severity]; !ok || c.Claim1 == "" || c.Claim2 == "" {
			continue
		}
		valid = append(valid, c)
	}
	return valid
}

const contradictionSystemPrompt = "You compare factual claims from two documents and report only genuine contradictions. Respond with JSON only."

func (d *Detector) detectContradiction(ctx context.Context, a, b *model.Document) (model.RelationshipEdge, bool) {
	found := d.DetectContradictions(ctx, a, b)
	if len(found) == 0 {
		return model.RelationshipEdge{}, false
	}
	strength := 0.0
	evidence := make([]string, 0, len(found))
	for _, c := range found {
		if s := severityStrength[c.Severity]; s > strength {
			strength = s
		}
		evidence = append(evidence, fmt.Sprintf("[%s] %s", c.Severity, c.Explanation))
	}
	return model.RelationshipEdge{
		SourceID:     a.ID,
		TargetID:     b.ID,
		Type:         model.RelationContradicts,
		Strength:     strength,
		Evidence:     evidence,
		AutoDetected: true,
	}, true
}

// sameClaims reports whether both lists hold the same normalized sentences.
// A document never contradicts an identical copy of itself.
func sameClaims(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	na := normalizeAll(a)
	nb := normalizeAll(b)
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = textutil.Normalize(s)
	}
	sort.Strings(out)
	return out
}

func numbered(lines []string) string {
	var sb strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, l)
	}
	return strings.TrimRight(sb.String(), "\n")
}
