// Package insight turns relationship edges, graph metrics and extracted
// concepts into human-readable theme, progression, synthesis and gap
// insights.
package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/docmind/internal/ai"
	"github.com/xxxsen/docmind/internal/concept"
	"github.com/xxxsen/docmind/internal/graph"
	"github.com/xxxsen/docmind/internal/model"
)

// Policy decides what a failed or malformed LLM call contributes.
type Policy string

const (
	// PolicyEmpty drops the insight kind entirely.
	PolicyEmpty Policy = "empty"
	// PolicyHeuristic substitutes low-confidence insights computed from
	// concepts and graph structure.
	PolicyHeuristic Policy = "heuristic"
)

const (
	defaultClusterThreshold = 0.5
	conceptsPerDocument     = 8
	maxLLMConcurrency       = 4
)

type EdgeDetector interface {
	DetectAll(ctx context.Context, docs []*model.Document) ([]model.RelationshipEdge, error)
}

type Config struct {
	Policy           Policy
	ClusterThreshold float64
}

type Report struct {
	Insights []model.Insight               `json:"insights"`
	Edges    []model.RelationshipEdge      `json:"edges"`
	Metrics  map[string]model.GraphMetrics `json:"metrics"`
	Clusters [][]string                    `json:"clusters"`
	Concepts map[string][]string           `json:"concepts"`
}

type Synthesizer struct {
	detector EdgeDetector
	llm      ai.CompletionClient
	cfg      Config
}

func New(detector EdgeDetector, llm ai.CompletionClient, cfg Config) *Synthesizer {
	if cfg.Policy == "" {
		cfg.Policy = PolicyEmpty
	}
	if cfg.ClusterThreshold <= 0 {
		cfg.ClusterThreshold = defaultClusterThreshold
	}
	return &Synthesizer{detector: detector, llm: llm, cfg: cfg}
}

// corpus is everything the per-kind generators read.
type corpus struct {
	docs     []*model.Document
	byID     map[string]*model.Document
	edges    []model.RelationshipEdge
	metrics  map[string]model.GraphMetrics
	clusters [][]string
	concepts map[string][]string
}

// Synthesize only fails when ctx is cancelled during relationship detection.
// LLM failures are absorbed according to the configured Policy.
func (s *Synthesizer) Synthesize(ctx context.Context, ownerID string, docs []*model.Document) (*Report, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("owner_id", ownerID), zap.Int("documents", len(docs)))
	report := &Report{
		Insights: []model.Insight{},
		Edges:    []model.RelationshipEdge{},
		Metrics:  map[string]model.GraphMetrics{},
		Clusters: [][]string{},
		Concepts: map[string][]string{},
	}
	if len(docs) == 0 {
		return report, nil
	}
	c := &corpus{docs: docs, byID: make(map[string]*model.Document, len(docs)), concepts: make(map[string][]string, len(docs))}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		c.byID[d.ID] = d
		ids = append(ids, d.ID)
		c.concepts[d.ID] = concept.Top(concept.Extract(d.Title+"\n"+d.Content), conceptsPerDocument)
	}
	if s.detector != nil {
		edges, err := s.detector.DetectAll(ctx, docs)
		if err != nil {
			return nil, err
		}
		c.edges = edges
	}
	c.metrics = graph.Analyze(ids, c.edges)
	c.clusters = graph.StrongClusters(ids, c.edges, s.cfg.ClusterThreshold)

	kinds := []struct {
		typ       model.InsightType
		prompt    func(*corpus) string
		heuristic func(*corpus) []model.Insight
	}{
		{model.InsightTheme, themePrompt, heuristicThemes},
		{model.InsightProgression, progressionPrompt, heuristicProgression},
		{model.InsightSynthesis, synthesisPrompt, heuristicSynthesis},
		{model.InsightGap, gapPrompt, heuristicGaps},
	}
	results := make([][]model.Insight, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLLMConcurrency)
	for i, k := range kinds {
		g.Go(func() error {
			found, ok := s.generate(gctx, k.typ, k.prompt(c), c)
			if !ok && s.cfg.Policy == PolicyHeuristic {
				found = k.heuristic(c)
			}
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()
	for _, r := range results {
		report.Insights = append(report.Insights, r...)
	}
	if c.edges != nil {
		report.Edges = c.edges
	}
	report.Metrics = c.metrics
	report.Clusters = c.clusters
	report.Concepts = c.concepts
	logger.Info("insight synthesis finished", zap.Int("insights", len(report.Insights)), zap.Int("edges", len(c.edges)))
	return report, nil
}

type insightDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DocumentIDs []string `json:"document_ids"`
	Confidence  float64  `json:"confidence"`
}

// generate asks the LLM for one insight kind. ok is false when the call or
// the parse failed.
func (s *Synthesizer) generate(ctx context.Context, typ model.InsightType, prompt string, c *corpus) ([]model.Insight, bool) {
	logger := logutil.GetLogger(ctx).With(zap.String("insight_type", string(typ)))
	if s.llm == nil {
		return nil, false
	}
	out, err := s.llm.Complete(ctx, systemPrompt, prompt, ai.CompletionOptions{Temperature: 0.3, MaxTokens: 1024})
	if err != nil {
		logger.Warn("insight generation unavailable", zap.Error(err))
		return nil, false
	}
	drafts, err := ai.ParseJSON[[]insightDraft](out)
	if err != nil {
		logger.Warn("insight response malformed", zap.Error(err))
		return nil, false
	}
	insights := make([]model.Insight, 0, len(drafts))
	for _, d := range drafts {
		if strings.TrimSpace(d.Title) == "" {
			continue
		}
		insights = append(insights, model.Insight{
			Type:        typ,
			Title:       strings.TrimSpace(d.Title),
			Description: strings.TrimSpace(d.Description),
			DocumentIDs: knownIDs(d.DocumentIDs, c.byID),
			Confidence:  clamp01(d.Confidence),
		})
	}
	return insights, true
}

const systemPrompt = "You analyse a collection of documents and report insights. " +
	`Respond with a JSON array only: [{"title": "...", "description": "...", "document_ids": ["..."], "confidence": 0..1}].`

func knownIDs(ids []string, byID map[string]*model.Document) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func describeDocs(c *corpus, ids []string) string {
	var sb strings.Builder
	for _, id := range ids {
		d := c.byID[id]
		if d == nil {
			continue
		}
		fmt.Fprintf(&sb, "- %s %q concepts: %s\n", d.ID, d.Title, strings.Join(c.concepts[d.ID], ", "))
	}
	return sb.String()
}

func sortedIDs(c *corpus) []string {
	ids := make([]string, 0, len(c.docs))
	for _, d := range c.docs {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	return ids
}
