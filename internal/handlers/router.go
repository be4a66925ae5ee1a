package handlers

import (
	"net/http"

	"github.com/fileflow/fileflow/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Router wires every handler under the versioned API surface.
type Router struct {
	auth    *AuthHandler
	files   *FileHandler
	folders *FolderHandler
	shares  *ShareHandler

	authMW  *middleware.AuthMiddleware
	limitMW *middleware.RateLimitMiddleware
}

// NewRouter creates the route registry.
func NewRouter(
	auth *AuthHandler,
	files *FileHandler,
	folders *FolderHandler,
	shares *ShareHandler,
	authMW *middleware.AuthMiddleware,
	limitMW *middleware.RateLimitMiddleware,
) *Router {
	return &Router{
		auth:    auth,
		files:   files,
		folders: folders,
		shares:  shares,
		authMW:  authMW,
		limitMW: limitMW,
	}
}

// Register mounts all routes on the engine.
func (r *Router) Register(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	v1.Use(r.limitMW.Limit())

	// Public routes
	auth := v1.Group("/auth")
	{
		auth.POST("/register", r.auth.Register)
		auth.POST("/login", r.auth.Login)
		auth.POST("/refresh", r.auth.Refresh)
	}
	// Link access carries its own credential (the share token).
	v1.POST("/shares/access/:token", r.shares.AccessByToken)

	// Authenticated routes
	authed := v1.Group("")
	authed.Use(r.authMW.RequireAuth())
	{
		users := authed.Group("/users")
		{
			users.GET("/me", r.auth.Me)
			users.PATCH("/me", r.auth.UpdateMe)
		}

		files := authed.Group("/files")
		{
			files.POST("/upload/init", r.files.InitUpload)
			files.GET("", r.files.List)
			files.GET("/:fileID", r.files.Get)
			files.POST("/:fileID/complete", r.files.CompleteUpload)
			files.GET("/:fileID/download", r.files.Download)
			files.PATCH("/:fileID", r.files.Update)
			files.DELETE("/:fileID", r.files.Delete)
		}

		folders := authed.Group("/folders")
		{
			folders.POST("", r.folders.Create)
			folders.GET("", r.folders.List)
			folders.GET("/:folderID", r.folders.Get)
			folders.PATCH("/:folderID", r.folders.Update)
			folders.PATCH("/:folderID/move", r.folders.Move)
			folders.DELETE("/:folderID", r.folders.Delete)
		}

		shares := authed.Group("/shares")
		{
			shares.POST("", r.shares.Create)
			shares.GET("/sent", r.shares.ListSent)
			shares.GET("/received", r.shares.ListReceived)
			shares.GET("/:transactionID", r.shares.Get)
			shares.GET("/:transactionID/receipt", r.shares.Receipt)
			shares.POST("/:transactionID/delivered", r.shares.MarkDelivered)
			shares.POST("/:transactionID/view", r.shares.RecordView)
			shares.POST("/:transactionID/revoke", r.shares.Revoke)
		}
	}
}
