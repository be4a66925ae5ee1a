package handlers

import (
	"github.com/fileflow/fileflow/internal/pkg"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto the response envelope: validation
// failures list their fields, application errors carry their own status,
// anything else becomes a generic 500.
func respondError(c *gin.Context, err error) {
	if verrs, ok := err.(pkg.ValidationErrors); ok {
		pkg.ValidationErrorResponse(c, verrs)
		return
	}
	if appErr, ok := pkg.IsAppError(err); ok {
		pkg.ErrorResponseFromAppError(c, appErr)
		return
	}
	_ = c.Error(err)
	pkg.InternalServerErrorResponse(c, "Internal server error")
}
