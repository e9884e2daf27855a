package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docmind/internal/engine"
	"github.com/xxxsen/docmind/internal/pkg/response"
)

type AnalysisHandler struct {
	engine *engine.Engine
}

func NewAnalysisHandler(e *engine.Engine) *AnalysisHandler {
	return &AnalysisHandler{engine: e}
}

type documentSetRequest struct {
	DocumentIDs []string `json:"document_ids"`
	Threshold   float64  `json:"threshold"`
}

func (h *AnalysisHandler) Graph(c *gin.Context) {
	var req documentSetRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		invalid(c, "invalid request")
		return
	}
	g, err := h.engine.BuildRelationshipGraph(c.Request.Context(), getOwnerID(c), req.DocumentIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, g)
}

func (h *AnalysisHandler) Paths(c *gin.Context) {
	src, dst := c.Query("from"), c.Query("to")
	if src == "" || dst == "" {
		invalid(c, "from and to required")
		return
	}
	paths, err := h.engine.FindCitationPaths(c.Request.Context(), getOwnerID(c), src, dst, queryInt(c, "depth", 0))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"paths": paths})
}

func (h *AnalysisHandler) Insights(c *gin.Context) {
	var req documentSetRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		invalid(c, "invalid request")
		return
	}
	report, err := h.engine.SynthesizeInsights(c.Request.Context(), getOwnerID(c), req.DocumentIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}

type dnaRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *AnalysisHandler) ComputeDNA(c *gin.Context) {
	var req dnaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "invalid request")
		return
	}
	fp, err := h.engine.ComputeDNA(c.Request.Context(), getOwnerID(c), c.Param("id"), req.Content, req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, fp)
}

func (h *AnalysisHandler) CompareDNA(c *gin.Context) {
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		invalid(c, "a and b required")
		return
	}
	sim, err := h.engine.CompareDNA(c.Request.Context(), getOwnerID(c), a, b)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sim)
}

func (h *AnalysisHandler) ClusterDNA(c *gin.Context) {
	var req documentSetRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.DocumentIDs) == 0 {
		invalid(c, "document_ids required")
		return
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = 0.8
	}
	clusters, err := h.engine.ClusterByDNA(c.Request.Context(), getOwnerID(c), req.DocumentIDs, threshold)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"clusters": clusters})
}

func (h *AnalysisHandler) Similar(c *gin.Context) {
	sims, err := h.engine.FindSimilarDocuments(c.Request.Context(), getOwnerID(c), c.Param("id"),
		queryFloat(c, "threshold", 0.7), queryInt(c, "limit", 10))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"similar": sims})
}
