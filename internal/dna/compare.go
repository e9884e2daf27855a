package dna

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/model"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

const (
	weightStructural = 0.15
	weightSemantic   = 0.35
	weightStylistic  = 0.15
	weightTopical    = 0.25
	weightComplexity = 0.10
)

// Source resolves document ids inside one owner's namespace. Load returns an
// error wrapping errors.ErrNotFound for ids the owner does not have.
type Source struct {
	OwnerID string
	Load    func(ctx context.Context, docID string) (*model.Document, error)
}

// Compare combines per-vector cosine similarities with fixed weights. It is
// symmetric in a and b.
func Compare(a, b *model.DNAFingerprint) model.DNASimilarity {
	sim := model.DNASimilarity{
		DocumentID1: a.DocumentID,
		DocumentID2: b.DocumentID,
		Structural:  cosine(a.Structural, b.Structural),
		Stylistic:   cosine(a.Stylistic, b.Stylistic),
		Complexity:  cosine(a.Complexity, b.Complexity),
		Topical:     cosine(a.Topical, b.Topical),
		Semantic:    cosine(a.Semantic, b.Semantic),
	}
	sim.Overall = sim.Structural*weightStructural +
		sim.Semantic*weightSemantic +
		sim.Stylistic*weightStylistic +
		sim.Topical*weightTopical +
		sim.Complexity*weightComplexity
	return sim
}

// cosine treats two all-zero vectors as identical and a single zero vector as
// unrelated.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	switch {
	case na == 0 && nb == 0:
		return 1
	case na == 0 || nb == 0:
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, sim))
}

// Load resolves docID through src and returns its fingerprint. The cached
// entry is reused only while it matches the loaded content.
func (f *Fingerprinter) Load(ctx context.Context, src Source, docID string) (*model.DNAFingerprint, error) {
	if src.Load == nil {
		return nil, fmt.Errorf("fingerprint %s: %w", docID, appErr.ErrNotFound)
	}
	doc, err := src.Load(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", docID, err)
	}
	return f.Fingerprint(ctx, src.OwnerID, doc.ID, doc.Content, doc.Title)
}

func (f *Fingerprinter) CompareByID(ctx context.Context, src Source, id1, id2 string) (*model.DNASimilarity, error) {
	a, err := f.Load(ctx, src, id1)
	if err != nil {
		return nil, err
	}
	b, err := f.Load(ctx, src, id2)
	if err != nil {
		return nil, err
	}
	sim := Compare(a, b)
	return &sim, nil
}

// FindSimilar ranks candidates by overall similarity to docID, keeping those
// at or above threshold. Candidates that cannot be loaded are skipped.
// limit <= 0 means no limit.
func (f *Fingerprinter) FindSimilar(ctx context.Context, src Source, docID string, candidates []string, threshold float64, limit int) ([]model.DNASimilarity, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID))
	target, err := f.Load(ctx, src, docID)
	if err != nil {
		return nil, err
	}
	out := make([]model.DNASimilarity, 0)
	for _, id := range candidates {
		if id == docID {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fp, err := f.Load(ctx, src, id)
		if err != nil {
			logger.Warn("skip candidate without fingerprint", zap.String("candidate", id), zap.Error(err))
			continue
		}
		if sim := Compare(target, fp); sim.Overall >= threshold {
			out = append(out, sim)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Overall > out[j].Overall })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Cluster greedily groups ids in a single pass: each unvisited id collects
// every later unvisited id whose similarity to it reaches threshold. Once
// visited an id's membership is final. Only groups of two or more are
// returned.
func (f *Fingerprinter) Cluster(ctx context.Context, src Source, ids []string, threshold float64) ([][]string, error) {
	fps := make([]*model.DNAFingerprint, len(ids))
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fp, err := f.Load(ctx, src, id)
		if err != nil {
			return nil, err
		}
		fps[i] = fp
	}
	visited := make([]bool, len(ids))
	clusters := make([][]string, 0)
	for i := range ids {
		if visited[i] {
			continue
		}
		visited[i] = true
		group := []string{ids[i]}
		for j := i + 1; j < len(ids); j++ {
			if visited[j] {
				continue
			}
			if Compare(fps[i], fps[j]).Overall >= threshold {
				visited[j] = true
				group = append(group, ids[j])
			}
		}
		if len(group) > 1 {
			clusters = append(clusters, group)
		}
	}
	return clusters, nil
}
