package middleware

import (
	"github.com/fileflow/fileflow/internal/pkg"

	"github.com/gin-gonic/gin"
)

// Recovery converts panics into a generic 500 without leaking internals.
func Recovery(logger *pkg.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", map[string]interface{}{
					"panic":  r,
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
				})
				pkg.InternalServerErrorResponse(c, "Internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
