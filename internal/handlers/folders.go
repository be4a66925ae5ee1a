package handlers

import (
	"net/http"

	"github.com/fileflow/fileflow/internal/middleware"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FolderHandler exposes the folder tree over HTTP.
type FolderHandler struct {
	folderService *services.FolderService
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService *services.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

// Create adds a folder at the end of the caller's ordering.
// POST /api/v1/folders
func (h *FolderHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	folder, err := h.folderService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.CreatedResponse(c, "Folder created", folder)
}

// List returns the caller's folders in position order with file counts.
// GET /api/v1/folders
func (h *FolderHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	folders, err := h.folderService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Folders retrieved", folders)
}

// Get returns one folder.
// GET /api/v1/folders/:folderID
func (h *FolderHandler) Get(c *gin.Context) {
	userID, folderID, ok := h.ownedFolderParams(c)
	if !ok {
		return
	}

	folder, err := h.folderService.Get(c.Request.Context(), userID, folderID)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Folder retrieved", folder)
}

// Update changes folder metadata.
// PATCH /api/v1/folders/:folderID
func (h *FolderHandler) Update(c *gin.Context) {
	userID, folderID, ok := h.ownedFolderParams(c)
	if !ok {
		return
	}

	var req services.UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	folder, err := h.folderService.Update(c.Request.Context(), userID, folderID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Folder updated", folder)
}

// Move reparents a folder; moves that would close a loop are rejected.
// PATCH /api/v1/folders/:folderID/move
func (h *FolderHandler) Move(c *gin.Context) {
	userID, folderID, ok := h.ownedFolderParams(c)
	if !ok {
		return
	}

	var req struct {
		ParentFolderID *string `json:"parentFolderId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	var parentID *primitive.ObjectID
	if req.ParentFolderID != nil {
		id, err := pkg.ObjectIDFromParam(*req.ParentFolderID)
		if err != nil {
			respondError(c, err)
			return
		}
		parentID = &id
	}

	folder, err := h.folderService.Move(c.Request.Context(), userID, folderID, parentID)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Folder moved", folder)
}

// Delete removes a folder, detaching its files and compacting positions.
// DELETE /api/v1/folders/:folderID
func (h *FolderHandler) Delete(c *gin.Context) {
	userID, folderID, ok := h.ownedFolderParams(c)
	if !ok {
		return
	}

	if err := h.folderService.Delete(c.Request.Context(), userID, folderID); err != nil {
		respondError(c, err)
		return
	}
	pkg.DeletedResponse(c, "Folder deleted")
}

func (h *FolderHandler) ownedFolderParams(c *gin.Context) (primitive.ObjectID, primitive.ObjectID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	folderID, err := pkg.ObjectIDFromParam(c.Param("folderID"))
	if err != nil {
		respondError(c, err)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return userID, folderID, true
}
