// Package engine is the in-process API of docmind. It wires the chunker,
// embedder, vector index, retriever, relationship detector, graph analyzer,
// DNA fingerprinter and insight synthesizer around a document repository.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/docmind/internal/ai"
	"github.com/xxxsen/docmind/internal/chunker"
	"github.com/xxxsen/docmind/internal/dna"
	"github.com/xxxsen/docmind/internal/embedding"
	"github.com/xxxsen/docmind/internal/graph"
	"github.com/xxxsen/docmind/internal/insight"
	"github.com/xxxsen/docmind/internal/model"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
	"github.com/xxxsen/docmind/internal/relationship"
	"github.com/xxxsen/docmind/internal/retriever"
	"github.com/xxxsen/docmind/internal/vectorindex"
)

const defaultConcurrency = 5

// DocumentRepository is the read side of the host's document store.
type DocumentRepository interface {
	Get(ctx context.Context, ownerID, docID string) (*model.Document, error)
	List(ctx context.Context, ownerID string, filter model.DocumentFilter) ([]*model.Document, error)
}

type Config struct {
	Chunker      chunker.Config
	Retriever    retriever.Config
	Relationship relationship.Config
	DNA          dna.Config
	Insight      insight.Config
	Layout       graph.LayoutOptions
	// Concurrency bounds embedding fan-out and batched document reads.
	Concurrency int
}

type Dependencies struct {
	Documents DocumentRepository
	Index     vectorindex.Client
	LLM       ai.CompletionClient
	// DocumentEmbedder embeds chunks on ingest, QueryEmbedder embeds search
	// queries. QueryEmbedder defaults to DocumentEmbedder.
	DocumentEmbedder embedding.Embedder
	QueryEmbedder    embedding.Embedder
}

type Engine struct {
	docs        DocumentRepository
	index       vectorindex.Client
	embedder    embedding.Embedder
	chunker     *chunker.Chunker
	retriever   *retriever.Retriever
	detector    *relationship.Detector
	dna         *dna.Fingerprinter
	synthesizer *insight.Synthesizer
	cfg         Config
}

func New(deps Dependencies, cfg Config) (*Engine, error) {
	if deps.Documents == nil || deps.Index == nil {
		return nil, fmt.Errorf("engine requires a document repository and a vector index: %w", appErr.ErrInvalid)
	}
	if deps.DocumentEmbedder == nil {
		deps.DocumentEmbedder = embedding.NewHashEmbedder()
	}
	if deps.QueryEmbedder == nil {
		deps.QueryEmbedder = deps.DocumentEmbedder
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	e := &Engine{
		docs:     deps.Documents,
		index:    deps.Index,
		embedder: deps.DocumentEmbedder,
		chunker:  chunker.New(cfg.Chunker),
		dna:      dna.New(deps.DocumentEmbedder, cfg.DNA),
		cfg:      cfg,
	}
	e.retriever = retriever.New(deps.Index, deps.QueryEmbedder, deps.LLM, cfg.Retriever)
	e.detector = relationship.New(deps.LLM, e, cfg.Relationship)
	e.synthesizer = insight.New(e.detector, deps.LLM, cfg.Insight)
	return e, nil
}

// source binds DNA lookups to one owner's documents.
func (e *Engine) source(ownerID string) dna.Source {
	return dna.Source{
		OwnerID: ownerID,
		Load: func(ctx context.Context, docID string) (*model.Document, error) {
			return e.docs.Get(ctx, ownerID, docID)
		},
	}
}

// loadDocuments returns the requested documents sorted by id. nil ids means
// every document of the owner. Explicit ids are read concurrently, at most
// Concurrency at a time.
func (e *Engine) loadDocuments(ctx context.Context, ownerID string, ids []string) ([]*model.Document, error) {
	if ids == nil {
		docs, err := e.docs.List(ctx, ownerID, model.DocumentFilter{})
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		sortDocuments(docs)
		return docs, nil
	}
	ids = uniqueIDs(ids)
	docs := make([]*model.Document, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			doc, err := e.docs.Get(gctx, ownerID, id)
			if err != nil {
				return fmt.Errorf("get document %s: %w", id, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sortDocuments(docs)
	return docs, nil
}

func sortDocuments(docs []*model.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("owner id is required: %w", appErr.ErrInvalid)
	}
	return nil
}

func opLogger(ctx context.Context, op string, fields ...zap.Field) *zap.Logger {
	return logutil.GetLogger(ctx).With(append([]zap.Field{zap.String("op", op)}, fields...)...)
}
