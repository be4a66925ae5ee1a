package middleware

import (
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context keys set by RequireAuth.
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

// AuthMiddleware validates bearer tokens on protected routes.
type AuthMiddleware struct {
	jwtManager *pkg.JWTManager
	userRepo   repository.UserRepository
	logger     *pkg.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(jwtManager *pkg.JWTManager, userRepo repository.UserRepository, logger *pkg.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// RequireAuth validates the JWT and loads the caller into the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := pkg.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			pkg.UnauthorizedResponse(c, "Authorization header required")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			if appErr, ok := pkg.IsAppError(err); ok {
				pkg.ErrorResponseFromAppError(c, appErr)
			} else {
				pkg.UnauthorizedResponse(c, "Invalid token")
			}
			c.Abort()
			return
		}

		user, err := m.userRepo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			pkg.UnauthorizedResponse(c, "Account is not active")
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserEmail, user.Email)
		c.Set(ContextUserRole, string(user.Role))
		c.Next()
	}
}

// UserID returns the authenticated caller's ID from the context.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

// UserEmail returns the authenticated caller's email from the context.
func UserEmail(c *gin.Context) string {
	return c.GetString(ContextUserEmail)
}
