package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/config"
	"github.com/xxxsen/docmind/internal/handler"
	"github.com/xxxsen/docmind/internal/job"
	"github.com/xxxsen/docmind/internal/middleware"
	"github.com/xxxsen/docmind/internal/model"
	"github.com/xxxsen/docmind/internal/schedule"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docmind",
		Short: "semantic document intelligence engine",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// a missing .env is normal outside development
			_ = godotenv.Load()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docmind http server and scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServer(a)
		},
	}

	var ownerID, docID, title string
	ingestCmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "store and index a markdown file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return ingestFile(cmd.Context(), a, args[0], ownerID, docID, title)
		},
	}
	ingestCmd.Flags().StringVar(&ownerID, "owner", "", "owner id")
	ingestCmd.Flags().StringVar(&docID, "id", "", "document id, defaults to the file name")
	ingestCmd.Flags().StringVar(&title, "title", "", "document title, defaults to the file name")
	_ = ingestCmd.MarkFlagRequired("owner")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "re-index one batch of stale documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return schedule.RunOnce(cmd.Context(), job.NewReindexJob(a.documents, a.engine, a.cfg.Jobs.ReindexBatch))
		},
	}

	rootCmd.AddCommand(runCmd, ingestCmd, reindexCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*app, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded",
		zap.String("config", configPath),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("vector_index", cfg.VectorIndex.Type),
	)
	return newApp(cfg)
}

func runServer(a *app) error {
	cfg := a.cfg
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewReindexJob(a.documents, a.engine, cfg.Jobs.ReindexBatch), cfg.Jobs.ReindexSpec); err != nil {
		return fmt.Errorf("schedule reindex: %w", err)
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(a.embedCache, cfg.Jobs.EmbedCacheMaxAgeDays), cfg.Jobs.EmbedCacheCleanSpec); err != nil {
		return fmt.Errorf("schedule embedding cache cleanup: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Documents:      handler.NewDocumentHandler(a.engine, a.documents),
		Analysis:       handler.NewAnalysisHandler(a.engine),
		AnalysisWindow: time.Duration(cfg.HTTP.AnalysisRateLimitSeconds) * time.Second,
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	web, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.HTTP.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := web.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func ingestFile(ctx context.Context, a *app, path, ownerID, docID, title string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if docID == "" {
		docID = base
	}
	if title == "" {
		title = base
	}
	now := time.Now().Unix()
	doc := &model.Document{ID: docID, OwnerID: ownerID, Title: title, Content: string(raw), Ctime: now, Mtime: now}
	if err := a.documents.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	ok, err := a.engine.UpdateDocument(ctx, ownerID, docID, doc.Content, title)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("document ingested",
		zap.String("owner_id", ownerID), zap.String("doc_id", docID), zap.Bool("indexed", ok))
	return nil
}
