package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/graph"
	"github.com/xxxsen/docmind/internal/insight"
	"github.com/xxxsen/docmind/internal/model"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

// BuildRelationshipGraph detects relationships among the owner's documents
// (all of them when docIDs is nil) and returns nodes with metrics and layout
// positions. Detection is quadratic in the number of documents.
func (e *Engine) BuildRelationshipGraph(ctx context.Context, ownerID string, docIDs []string) (*model.Graph, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	logger := opLogger(ctx, "relationship_graph", zap.String("owner_id", ownerID))
	docs, err := e.loadDocuments(ctx, ownerID, docIDs)
	if err != nil {
		return nil, err
	}
	edges, err := e.detector.DetectAll(ctx, docs)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	metrics := graph.Analyze(ids, edges)
	positions := graph.Layout(ids, edges, e.cfg.Layout)
	out := &model.Graph{
		Nodes: make([]model.GraphNode, 0, len(docs)),
		Edges: edges,
	}
	if out.Edges == nil {
		out.Edges = []model.RelationshipEdge{}
	}
	for _, d := range docs {
		out.Nodes = append(out.Nodes, model.GraphNode{
			ID:       d.ID,
			Title:    d.Title,
			Metrics:  metrics[d.ID],
			Position: positions[d.ID],
		})
	}
	logger.Info("relationship graph built", zap.Int("nodes", len(out.Nodes)), zap.Int("edges", len(out.Edges)))
	return out, nil
}

// FindCitationPaths lists the simple relationship paths from src to dst over
// the owner's whole corpus, shortest first.
func (e *Engine) FindCitationPaths(ctx context.Context, ownerID, src, dst string, maxDepth int) ([][]string, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	docs, err := e.loadDocuments(ctx, ownerID, nil)
	if err != nil {
		return nil, err
	}
	if !hasDocument(docs, src) || !hasDocument(docs, dst) {
		return nil, fmt.Errorf("path endpoints %s -> %s: %w", src, dst, appErr.ErrNotFound)
	}
	edges, err := e.detector.DetectAll(ctx, docs)
	if err != nil {
		return nil, err
	}
	return graph.FindPaths(edges, src, dst, maxDepth), nil
}

// ComputeDNA fingerprints the given content. The result is cached only when
// it is the stored content of the owner's document; anything else is an
// ad-hoc computation that never replaces a cached fingerprint.
func (e *Engine) ComputeDNA(ctx context.Context, ownerID, docID, content, title string) (*model.DNAFingerprint, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if docID == "" {
		return nil, fmt.Errorf("document id is required: %w", appErr.ErrInvalid)
	}
	doc, err := e.docs.Get(ctx, ownerID, docID)
	switch {
	case err == nil && doc.Content == content && doc.Title == title:
		return e.dna.Fingerprint(ctx, ownerID, docID, content, title)
	case err == nil || errors.Is(err, appErr.ErrNotFound):
		return e.dna.Compute(ctx, docID, content, title)
	default:
		return nil, fmt.Errorf("get document %s: %w", docID, err)
	}
}

// CompareDNA compares two of the owner's documents. Unknown documents are
// reported as ErrNotFound.
func (e *Engine) CompareDNA(ctx context.Context, ownerID, id1, id2 string) (*model.DNASimilarity, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return e.dna.CompareByID(ctx, e.source(ownerID), id1, id2)
}

func (e *Engine) ClusterByDNA(ctx context.Context, ownerID string, docIDs []string, threshold float64) ([][]string, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return e.dna.Cluster(ctx, e.source(ownerID), uniqueIDs(docIDs), threshold)
}

// FindSimilarDocuments ranks the owner's other documents by DNA similarity.
func (e *Engine) FindSimilarDocuments(ctx context.Context, ownerID, docID string, threshold float64, limit int) ([]model.DNASimilarity, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	docs, err := e.loadDocuments(ctx, ownerID, nil)
	if err != nil {
		return nil, err
	}
	candidates := make([]string, 0, len(docs))
	for _, d := range docs {
		candidates = append(candidates, d.ID)
	}
	return e.dna.FindSimilar(ctx, e.source(ownerID), docID, candidates, threshold, limit)
}

func (e *Engine) SynthesizeInsights(ctx context.Context, ownerID string, docIDs []string) (*insight.Report, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	docs, err := e.loadDocuments(ctx, ownerID, docIDs)
	if err != nil {
		return nil, err
	}
	return e.synthesizer.Synthesize(ctx, ownerID, docs)
}

func hasDocument(docs []*model.Document, id string) bool {
	for _, d := range docs {
		if d.ID == id {
			return true
		}
	}
	return false
}
