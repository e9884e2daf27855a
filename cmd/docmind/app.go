package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/ai"
	"github.com/xxxsen/docmind/internal/chunker"
	"github.com/xxxsen/docmind/internal/config"
	"github.com/xxxsen/docmind/internal/db"
	"github.com/xxxsen/docmind/internal/dna"
	"github.com/xxxsen/docmind/internal/embedcache"
	"github.com/xxxsen/docmind/internal/embedding"
	"github.com/xxxsen/docmind/internal/engine"
	"github.com/xxxsen/docmind/internal/insight"
	"github.com/xxxsen/docmind/internal/repo"
	"github.com/xxxsen/docmind/internal/retriever"
	"github.com/xxxsen/docmind/internal/vectorindex"
)

type app struct {
	cfg        *config.Config
	db         *sql.DB
	documents  *repo.DocumentRepo
	embedCache *repo.EmbeddingCacheRepo
	engine     *engine.Engine
}

func newApp(cfg *config.Config) (*app, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn, cfg.Database.Driver); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	a := &app{
		cfg:        cfg,
		db:         conn,
		documents:  repo.NewDocumentRepo(conn, cfg.Database.Driver),
		embedCache: repo.NewEmbeddingCacheRepo(conn, cfg.Database.Driver),
	}
	llm, err := newCompletionClient(cfg.AI)
	if err != nil {
		conn.Close()
		return nil, err
	}
	enhanced, err := a.newProviderEmbedder()
	if err != nil {
		conn.Close()
		return nil, err
	}
	e, err := engine.New(engine.Dependencies{
		Documents:        a.documents,
		Index:            newVectorIndex(cfg.VectorIndex, conn),
		LLM:              llm,
		DocumentEmbedder: embedding.NewFallbackEmbedder(enhanced, embedding.TaskRetrievalDocument),
		QueryEmbedder:    embedding.NewFallbackEmbedder(enhanced, embedding.TaskRetrievalQuery),
	}, engineConfig(cfg))
	if err != nil {
		conn.Close()
		return nil, err
	}
	a.engine = e
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// newCompletionClient returns nil when no provider is configured; every LLM
// backed feature then takes its fallback path. Configured fallbacks are tried
// in order after the primary provider.
func newCompletionClient(cfg config.AIConfig) (ai.CompletionClient, error) {
	routes := make([]ai.Route[ai.IGenerator], 0, 1+len(cfg.Fallbacks))
	if cfg.Provider != "" {
		provider, err := ai.NewProvider(cfg.Provider, cfg.ProviderArgs())
		if err != nil {
			return nil, fmt.Errorf("init ai provider: %w", err)
		}
		routes = append(routes, ai.Route[ai.IGenerator]{Name: cfg.Provider, Client: ai.NewGenerator(provider, cfg.Model)})
	}
	for i, fb := range cfg.Fallbacks {
		if fb.Model == "" {
			continue
		}
		provider, err := ai.NewProvider(fb.Provider, fb.ProviderArgs())
		if err != nil {
			return nil, fmt.Errorf("init ai fallback %d: %w", i, err)
		}
		routes = append(routes, ai.Route[ai.IGenerator]{Name: fb.Provider, Client: ai.NewGenerator(provider, fb.Model)})
	}
	gen := ai.NewGeneratorGroup(routes)
	if gen == nil {
		logutil.GetLogger(context.Background()).Info("no ai provider configured, llm features use fallbacks")
		return nil, nil
	}
	return ai.NewCompleter(gen, ai.CompleterConfig{
		Timeout:       cfg.Timeout,
		MaxInputChars: cfg.MaxInputChars,
	}), nil
}

func (a *app) newProviderEmbedder() (ai.IEmbedder, error) {
	cfg := a.cfg.AI
	routes := make([]ai.Route[ai.IEmbedder], 0, 1+len(cfg.Fallbacks))
	if cfg.EmbedProvider != "" && cfg.EmbedModel != "" {
		provider, err := ai.NewEmbedProvider(cfg.EmbedProvider, cfg.ProviderArgs())
		if err != nil {
			return nil, fmt.Errorf("init embed provider: %w", err)
		}
		routes = append(routes, ai.Route[ai.IEmbedder]{Name: cfg.EmbedProvider, Client: a.cachedEmbedder(provider, cfg.EmbedModel)})
	}
	for i, fb := range cfg.Fallbacks {
		if fb.EmbedModel == "" {
			continue
		}
		provider, err := ai.NewEmbedProvider(fb.Provider, fb.ProviderArgs())
		if err != nil {
			return nil, fmt.Errorf("init embed fallback %d: %w", i, err)
		}
		routes = append(routes, ai.Route[ai.IEmbedder]{Name: fb.Provider, Client: a.cachedEmbedder(provider, fb.EmbedModel)})
	}
	embedder := ai.NewEmbedderGroup(routes)
	if embedder != nil {
		logutil.GetLogger(context.Background()).Info("provider embeddings enabled",
			zap.String("model", embedder.ModelName()), zap.Int("routes", len(routes)), zap.Bool("db_cache", cfg.EmbedCacheInDB))
	}
	return embedder, nil
}

// cachedEmbedder wraps one model with the db and lru caches.
func (a *app) cachedEmbedder(provider ai.IEmbedProvider, model string) ai.IEmbedder {
	embedder := ai.NewEmbedder(provider, model)
	if a.cfg.AI.EmbedCacheInDB {
		embedder = embedcache.WrapStore(embedder, a.embedCache)
	}
	return embedcache.WrapLRU(embedder, a.cfg.AI.EmbedCacheSize, time.Duration(a.cfg.AI.EmbedCacheTTL)*time.Minute)
}

func newVectorIndex(cfg config.VectorIndexConfig, conn *sql.DB) vectorindex.Client {
	switch cfg.Type {
	case config.DriverPostgres:
		return vectorindex.NewPostgres(conn)
	case config.DriverSQLite:
		return vectorindex.NewSQLite(conn)
	default:
		return vectorindex.NewMemory()
	}
}

func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		Chunker: chunker.Config{
			TargetSize: cfg.Chunker.TargetSize,
			Overlap:    cfg.Chunker.Overlap,
		},
		Retriever: retriever.Config{
			CacheSize:    cfg.Retriever.CacheSize,
			CacheTTL:     time.Duration(cfg.Retriever.CacheTTLHour) * time.Hour,
			DefaultK:     cfg.Retriever.DefaultK,
			MinRelevance: cfg.Retriever.MinRelevance,
		},
		DNA: dna.Config{
			CacheSize: cfg.DNA.CacheSize,
			CacheTTL:  time.Duration(cfg.DNA.CacheTTLMinutes) * time.Minute,
		},
		Insight: insight.Config{
			Policy: insight.Policy(cfg.Insight.PlaceholderPolicy),
		},
	}
}
