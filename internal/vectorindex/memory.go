package vectorindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/docmind/internal/model"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

// Memory is a brute-force in-process index.
type Memory struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]model.VectorRecord
}

func NewMemory() *Memory {
	return &Memory{namespaces: make(map[string]map[string]model.VectorRecord)}
}

func (m *Memory) Upsert(ctx context.Context, namespace string, records []model.VectorRecord) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]model.VectorRecord)
		m.namespaces[namespace] = ns
	}
	for _, rec := range records {
		rec.Namespace = namespace
		rec.Vector = append([]float32(nil), rec.Vector...)
		ns[rec.ID] = rec
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, namespace string, vector []float32, filter Filter, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	return rank(m.matching(namespace, filter), vector, k), nil
}

func (m *Memory) DeleteWhere(ctx context.Context, namespace string, filter Filter) (int, error) {
	if filter.IsZero() {
		return 0, fmt.Errorf("delete requires a filter: %w", appErr.ErrInvalid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, rec := range m.namespaces[namespace] {
		if filter.Match(&rec.Metadata) {
			delete(m.namespaces[namespace], id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) Get(ctx context.Context, namespace string, filter Filter, limit int) ([]model.VectorRecord, error) {
	records := m.matching(namespace, filter)
	sortRecords(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *Memory) matching(namespace string, filter Filter) []model.VectorRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.VectorRecord, 0, len(m.namespaces[namespace]))
	for _, rec := range m.namespaces[namespace] {
		if filter.Match(&rec.Metadata) {
			out = append(out, rec)
		}
	}
	return out
}
