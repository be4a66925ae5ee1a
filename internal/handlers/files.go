package handlers

import (
	"net/http"

	"github.com/fileflow/fileflow/internal/middleware"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileHandler exposes the file registry over HTTP.
type FileHandler struct {
	fileService *services.FileService
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService *services.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// InitUpload reserves quota and issues a presigned upload URL.
// POST /api/v1/files/upload/init
func (h *FileHandler) InitUpload(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	result, err := h.fileService.InitUpload(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.CreatedResponse(c, "Upload initialized", result)
}

// CompleteUpload finishes an upload after the client PUT the bytes.
// POST /api/v1/files/:fileID/complete
func (h *FileHandler) CompleteUpload(c *gin.Context) {
	userID, fileID, ok := h.ownedFileParams(c)
	if !ok {
		return
	}

	file, err := h.fileService.CompleteUpload(c.Request.Context(), userID, fileID)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Upload completed", file)
}

// List returns the caller's files, optionally scoped to a folder.
// GET /api/v1/files
func (h *FileHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var folderID *primitive.ObjectID
	if raw := c.Query("folderId"); raw != "" {
		id, err := pkg.ObjectIDFromParam(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		folderID = &id
	}

	params := pkg.NewPaginationParams(c)
	files, total, err := h.fileService.List(c.Request.Context(), userID, folderID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.PaginatedResponse(c, "Files retrieved", pkg.NewPaginationResult(files, total, params))
}

// Get returns one file's metadata.
// GET /api/v1/files/:fileID
func (h *FileHandler) Get(c *gin.Context) {
	userID, fileID, ok := h.ownedFileParams(c)
	if !ok {
		return
	}

	file, err := h.fileService.Get(c.Request.Context(), userID, fileID)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "File retrieved", file)
}

// Download issues a presigned download URL.
// GET /api/v1/files/:fileID/download
func (h *FileHandler) Download(c *gin.Context) {
	userID, fileID, ok := h.ownedFileParams(c)
	if !ok {
		return
	}

	url, err := h.fileService.DownloadURL(c.Request.Context(), userID, fileID)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Download URL generated", gin.H{"downloadUrl": url})
}

// Update changes file metadata.
// PATCH /api/v1/files/:fileID
func (h *FileHandler) Update(c *gin.Context) {
	userID, fileID, ok := h.ownedFileParams(c)
	if !ok {
		return
	}

	var req services.UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	file, err := h.fileService.Update(c.Request.Context(), userID, fileID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "File updated", file)
}

// Delete soft-deletes a file and returns its bytes to the quota ledger.
// DELETE /api/v1/files/:fileID
func (h *FileHandler) Delete(c *gin.Context) {
	userID, fileID, ok := h.ownedFileParams(c)
	if !ok {
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), userID, fileID); err != nil {
		respondError(c, err)
		return
	}
	pkg.DeletedResponse(c, "File deleted")
}

func (h *FileHandler) ownedFileParams(c *gin.Context) (primitive.ObjectID, primitive.ObjectID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	fileID, err := pkg.ObjectIDFromParam(c.Param("fileID"))
	if err != nil {
		respondError(c, err)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return userID, fileID, true
}
