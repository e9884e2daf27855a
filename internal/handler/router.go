package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docmind/internal/middleware"
)

type RouterDeps struct {
	Documents *DocumentHandler
	Analysis  *AnalysisHandler
	// AnalysisWindow rate limits the quadratic graph and insight routes per
	// owner. Zero disables the limit.
	AnalysisWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.Use(middleware.RequestID())
	owned := api.Group("")
	owned.Use(middleware.Owner())

	owned.POST("/documents/:id", deps.Documents.Ingest)
	owned.PUT("/documents/:id", deps.Documents.Update)
	owned.DELETE("/documents/:id", deps.Documents.Delete)
	owned.POST("/search", deps.Documents.Search)
	owned.POST("/context", deps.Documents.Context)

	owned.POST("/dna/fingerprint/:id", deps.Analysis.ComputeDNA)
	owned.GET("/dna/compare", deps.Analysis.CompareDNA)
	owned.POST("/dna/cluster", deps.Analysis.ClusterDNA)
	owned.GET("/documents/:id/similar", deps.Analysis.Similar)

	heavy := owned.Group("")
	heavy.Use(middleware.RateLimit(deps.AnalysisWindow))
	heavy.POST("/graph", deps.Analysis.Graph)
	heavy.GET("/graph/paths", deps.Analysis.Paths)
	heavy.POST("/insights", deps.Analysis.Insights)
}
