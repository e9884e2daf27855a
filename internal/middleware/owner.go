package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docmind/internal/pkg/errcode"
	"github.com/xxxsen/docmind/internal/pkg/response"
)

const (
	ContextOwnerIDKey = "owner_id"
	OwnerHeader       = "X-Owner-Id"
)

// Owner reads the caller identity the host's auth layer puts in OwnerHeader.
// Requests without it are rejected.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing owner")
			c.Abort()
			return
		}
		c.Set(ContextOwnerIDKey, owner)
		c.Next()
	}
}
