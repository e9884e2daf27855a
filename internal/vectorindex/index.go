// Package vectorindex stores chunk vectors per owner namespace and answers
// filtered nearest-neighbour queries by cosine distance.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xxxsen/docmind/internal/model"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

// Filter is equality/in matching on chunk metadata. The zero Filter matches
// every record.
type Filter struct {
	DocumentID  string
	DocumentIDs []string
}

func ByDocument(docID string) Filter {
	return Filter{DocumentID: docID}
}

func ByDocuments(docIDs []string) Filter {
	return Filter{DocumentIDs: docIDs}
}

func (f Filter) IsZero() bool {
	return f.DocumentID == "" && f.DocumentIDs == nil
}

func (f Filter) Match(meta *model.ChunkMetadata) bool {
	if f.DocumentID != "" && meta.DocumentID != f.DocumentID {
		return false
	}
	if f.DocumentIDs != nil {
		for _, id := range f.DocumentIDs {
			if id == meta.DocumentID {
				return true
			}
		}
		return false
	}
	return true
}

// documentIDs folds the filter into a single id list for SQL backends. A nil
// result means "no document restriction"; an empty non-nil result matches
// nothing.
func (f Filter) documentIDs() []string {
	switch {
	case f.DocumentID != "" && f.DocumentIDs != nil:
		for _, id := range f.DocumentIDs {
			if id == f.DocumentID {
				return []string{id}
			}
		}
		return []string{}
	case f.DocumentID != "":
		return []string{f.DocumentID}
	default:
		return f.DocumentIDs
	}
}

type Candidate struct {
	Record    model.VectorRecord
	Distance  float64
	Relevance float64
}

type Client interface {
	Upsert(ctx context.Context, namespace string, records []model.VectorRecord) error
	// Query returns up to k candidates ordered by ascending cosine distance.
	Query(ctx context.Context, namespace string, vector []float32, filter Filter, k int) ([]Candidate, error)
	DeleteWhere(ctx context.Context, namespace string, filter Filter) (int, error)
	// Get lists records ordered by document id and chunk index. limit <= 0
	// means no limit.
	Get(ctx context.Context, namespace string, filter Filter, limit int) ([]model.VectorRecord, error)
}

func Namespace(ownerID string) string {
	return "owner:" + ownerID
}

// CosineDistance is 1 - cosine similarity, in [0, 2]. Zero-magnitude input
// reports false.
func CosineDistance(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), true
}

// Relevance maps a cosine distance onto [0, 1].
func Relevance(distance float64) float64 {
	r := 1 - distance/2
	if r < 0 || math.IsNaN(r) {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func validateRecords(records []model.VectorRecord) error {
	for i := range records {
		if records[i].ID == "" {
			return fmt.Errorf("record %d has no id: %w", i, appErr.ErrInvalid)
		}
		if len(records[i].Vector) == 0 {
			return fmt.Errorf("record %s has no vector: %w", records[i].ID, appErr.ErrInvalid)
		}
	}
	return nil
}

// rank scores records against query and keeps the k nearest. Records whose
// distance is undefined are skipped.
func rank(records []model.VectorRecord, query []float32, k int) []Candidate {
	out := make([]Candidate, 0, len(records))
	for _, rec := range records {
		d, ok := CosineDistance(query, rec.Vector)
		if !ok {
			continue
		}
		out = append(out, Candidate{Record: rec, Distance: d, Relevance: Relevance(d)})
	}
	sortCandidates(out)
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func sortCandidates(out []Candidate) {
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Record.ID < out[j].Record.ID
	})
}

func sortRecords(records []model.VectorRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].Metadata, records[j].Metadata
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.Index < b.Index
	})
}
