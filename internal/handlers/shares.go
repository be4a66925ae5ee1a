package handlers

import (
	"net/http"

	"github.com/fileflow/fileflow/internal/middleware"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/services"

	"github.com/gin-gonic/gin"
)

// ShareHandler exposes the share transaction engine over HTTP.
type ShareHandler struct {
	shareService *services.ShareService
}

// NewShareHandler creates a new share handler
func NewShareHandler(shareService *services.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// Create sends a file to a recipient.
// POST /api/v1/shares
func (h *ShareHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	share, err := h.shareService.Send(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.CreatedResponse(c, "Share transaction created", share)
}

// ListSent returns the caller's outgoing transactions.
// GET /api/v1/shares/sent
func (h *ShareHandler) ListSent(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	params := pkg.NewPaginationParams(c)
	shares, total, err := h.shareService.ListSent(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.PaginatedResponse(c, "Sent shares retrieved", pkg.NewPaginationResult(shares, total, params))
}

// ListReceived returns the caller's inbox.
// GET /api/v1/shares/received
func (h *ShareHandler) ListReceived(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	params := pkg.NewPaginationParams(c)
	shares, total, err := h.shareService.ListReceived(c.Request.Context(), userID, middleware.UserEmail(c), params)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.PaginatedResponse(c, "Received shares retrieved", pkg.NewPaginationResult(shares, total, params))
}

// Get returns full transaction detail to either party.
// GET /api/v1/shares/:transactionID
func (h *ShareHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	share, err := h.shareService.GetTransaction(c.Request.Context(), userID, middleware.UserEmail(c), c.Param("transactionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Share retrieved", share)
}

// Receipt returns the signed receipt for a transaction.
// GET /api/v1/shares/:transactionID/receipt
func (h *ShareHandler) Receipt(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	receipt, err := h.shareService.Receipt(c.Request.Context(), userID, middleware.UserEmail(c), c.Param("transactionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Receipt generated", receipt)
}

// MarkDelivered records delivery of a transaction.
// POST /api/v1/shares/:transactionID/delivered
func (h *ShareHandler) MarkDelivered(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	share, err := h.shareService.MarkDelivered(c.Request.Context(), userID, middleware.UserEmail(c), c.Param("transactionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Share marked delivered", share)
}

// RecordView records one view by an authenticated party.
// POST /api/v1/shares/:transactionID/view
func (h *ShareHandler) RecordView(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	share, err := h.shareService.RecordView(c.Request.Context(), userID, middleware.UserEmail(c), c.Param("transactionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "View recorded", share)
}

// Revoke terminates a transaction. Sender only.
// POST /api/v1/shares/:transactionID/revoke
func (h *ShareHandler) Revoke(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	share, err := h.shareService.Revoke(c.Request.Context(), userID, middleware.UserEmail(c), c.Param("transactionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Share revoked", share)
}

// AccessByToken is the public link/qr access path. No bearer token; the
// share token (plus optional password) is the credential.
// POST /api/v1/shares/access/:token
func (h *ShareHandler) AccessByToken(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	// Body is optional for unprotected links.
	_ = c.ShouldBindJSON(&req)

	share, err := h.shareService.AccessByToken(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	pkg.SuccessResponse(c, http.StatusOK, "Share accessed", share)
}
