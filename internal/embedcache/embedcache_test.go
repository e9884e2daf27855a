package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docmind/internal/model"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }

type memStore struct {
	items   map[string][]float32
	saveErr error
}

func (m *memStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	v, ok := m.items[modelName+taskType+contentHash]
	return v, ok, nil
}

func (m *memStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[item.ModelName+item.TaskType+item.ContentHash] = item.Embedding
	return nil
}

func TestWrapLRUCachesPerTaskType(t *testing.T) {
	inner := &countingEmbedder{}
	e := WrapLRU(inner, 10, time.Minute)
	ctx := context.Background()

	first, err := e.Embed(ctx, "abc", "q")
	require.NoError(t, err)
	first[0] = 99 // callers must not be able to poison the cache
	second, err := e.Embed(ctx, "abc", "q")
	require.NoError(t, err)
	require.Equal(t, float32(3), second[0])
	require.Equal(t, 1, inner.calls)

	_, err = e.Embed(ctx, "abc", "d")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
	require.Equal(t, "counting", e.ModelName())
}

func TestWrapLRUDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	require.Same(t, inner, WrapLRU(inner, 0, time.Minute).(*countingEmbedder))
}

func TestWrapStore(t *testing.T) {
	inner := &countingEmbedder{}
	store := &memStore{items: map[string][]float32{}}
	e := WrapStore(inner, store)
	ctx := context.Background()

	_, err := e.Embed(ctx, "hello", "q")
	require.NoError(t, err)
	_, err = e.Embed(ctx, "hello", "q")
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
	require.Len(t, store.items, 1)
}

func TestWrapStoreSaveFailureIsNotFatal(t *testing.T) {
	e := WrapStore(&countingEmbedder{}, &memStore{items: map[string][]float32{}, saveErr: errors.New("disk full")})
	out, err := e.Embed(context.Background(), "x", "")
	require.NoError(t, err)
	require.Len(t, out, 2)
}
