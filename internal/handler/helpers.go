package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docmind/internal/middleware"
	"github.com/xxxsen/docmind/internal/pkg/errcode"
	"github.com/xxxsen/docmind/internal/pkg/response"
)

func getOwnerID(c *gin.Context) string {
	return c.GetString(middleware.ContextOwnerIDKey)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, msg := response.FromError(err)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("owner_id", getOwnerID(c)),
		zap.Int("code", code),
		zap.Error(err),
	)
	response.Error(c, code, msg)
}

func invalid(c *gin.Context, msg string) {
	response.Error(c, errcode.ErrInvalid, msg)
}

// bindOptionalJSON binds the body when one is sent. An empty body keeps the
// zero value, which analysis routes read as "every document of the owner".
func bindOptionalJSON(c *gin.Context, v interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(v)
}

func queryFloat(c *gin.Context, key string, def float64) float64 {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
