package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// transactionIDRetries bounds retries when the unique index reports a
// transaction ID collision. Collisions are astronomically unlikely, so a
// couple of retries is plenty.
const transactionIDRetries = 3

// ShareService implements the share transaction lifecycle: creation,
// delivery/view/revoke transitions, listings and receipts.
type ShareService struct {
	shareRepo repository.ShareRepository
	fileRepo  repository.FileRepository
	userRepo  repository.UserRepository
	validator *pkg.Validator
	logger    *pkg.Logger
	now       func() time.Time
}

// NewShareService creates a new share service
func NewShareService(
	shareRepo repository.ShareRepository,
	fileRepo repository.FileRepository,
	userRepo repository.UserRepository,
	validator *pkg.Validator,
	logger *pkg.Logger,
) *ShareService {
	return &ShareService{
		shareRepo: shareRepo,
		fileRepo:  fileRepo,
		userRepo:  userRepo,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *ShareService) WithClock(now func() time.Time) *ShareService {
	s.now = now
	return s
}

// CreateShareRequest is the payload for sending a file.
type CreateShareRequest struct {
	FileID           string     `json:"fileId" validate:"required,objectid"`
	RecipientEmail   string     `json:"recipientEmail" validate:"omitempty,email"`
	RecipientPhone   string     `json:"recipientPhone" validate:"omitempty,phone"`
	RecipientName    string     `json:"recipientName" validate:"omitempty,max=255"`
	TargetFolderName string     `json:"targetFolderName" validate:"omitempty,max=255"`
	Message          string     `json:"message" validate:"omitempty,max=1000"`
	ShareType        string     `json:"shareType" validate:"required,oneof=direct link qr"`
	Password         string     `json:"password" validate:"omitempty,min=4,max=128"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	MaxViews         int        `json:"maxViews" validate:"gte=0"`

	// Permissions defaults to view+download when omitted.
	Permissions *models.SharePermissions `json:"permissions"`
}

// ShareProjection is a share joined with the current metadata of its file.
// The file section reflects renames, but a soft-deleted file keeps the share
// visible for historical integrity.
type ShareProjection struct {
	*models.Share
	File *ShareFileInfo `json:"file,omitempty"`
}

// ShareFileInfo is the slice of file metadata surfaced on share listings.
type ShareFileInfo struct {
	ID        primitive.ObjectID `json:"id"`
	Filename  string             `json:"filename"`
	SizeBytes int64              `json:"sizeBytes"`
	MimeType  string             `json:"mimeType"`
	Deleted   bool               `json:"deleted"`
}

// Send creates a share transaction for a file the sender owns. Sharing
// creates a reference only: neither the file nor the quota ledger moves.
func (s *ShareService) Send(ctx context.Context, senderID primitive.ObjectID, req *CreateShareRequest) (*ShareProjection, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.RecipientEmail == "" && req.RecipientPhone == "" {
		return nil, pkg.ErrInvalidInput.WithDetails(map[string]interface{}{
			"message": "a recipient email or phone is required",
		})
	}

	fileID, err := pkg.ObjectIDFromParam(req.FileID)
	if err != nil {
		return nil, err
	}

	// Ownership check doubles as the existence check; non-owners get the
	// same NotFound an absent file would produce.
	file, err := s.fileRepo.GetOwned(ctx, senderID, fileID)
	if err != nil {
		return nil, err
	}
	if file.Status != models.FileStatusUploaded {
		return nil, pkg.ErrFileNotReady
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	share := &models.Share{
		FileID:           file.ID,
		SenderUserID:     sender.ID,
		SenderName:       sender.Name,
		SenderEmail:      sender.Email,
		RecipientEmail:   strings.ToLower(req.RecipientEmail),
		RecipientPhone:   req.RecipientPhone,
		RecipientName:    req.RecipientName,
		TargetFolderName: req.TargetFolderName,
		Message:          req.Message,
		ShareType:        models.ShareType(req.ShareType),
		Status:           models.ShareStatusSent,
		ExpiresAt:        req.ExpiresAt,
		MaxViews:         req.MaxViews,
		ViewCount:        0,
		Permissions:      models.DefaultSharePermissions(),
	}
	if req.Permissions != nil {
		share.Permissions = *req.Permissions
	}

	// Snapshot the recipient identity if they already have an account, so
	// the transaction record stays stable even if the profile changes.
	if share.RecipientEmail != "" {
		if recipient, err := s.userRepo.GetByEmail(ctx, share.RecipientEmail); err == nil {
			share.RecipientUserID = &recipient.ID
			if share.RecipientName == "" {
				share.RecipientName = recipient.Name
			}
		}
	}

	if share.ShareType == models.ShareTypeLink || share.ShareType == models.ShareTypeQR {
		token, err := pkg.GenerateSecureToken(32)
		if err != nil {
			return nil, pkg.ErrInternalServer.WithCause(err)
		}
		share.ShareToken = token
	}

	if req.Password != "" {
		hash, err := pkg.HashPassword(req.Password)
		if err != nil {
			return nil, pkg.ErrInternalServer.WithCause(err)
		}
		share.PasswordHash = hash
	}

	for attempt := 0; ; attempt++ {
		txnID, err := pkg.GenerateTransactionID(now)
		if err != nil {
			return nil, pkg.ErrInternalServer.WithCause(err)
		}
		share.TransactionID = txnID

		err = s.shareRepo.Create(ctx, share)
		if err == nil {
			break
		}
		if pkg.ErrDuplicateTransaction.Is(err) && attempt < transactionIDRetries {
			continue
		}
		return nil, err
	}

	s.logger.Info("share transaction created", map[string]interface{}{
		"transaction_id": share.TransactionID,
		"sender_id":      sender.ID.Hex(),
		"file_id":        file.ID.Hex(),
		"share_type":     share.ShareType,
	})

	return s.project(share, file), nil
}

// MarkDelivered performs the sent -> delivered transition. Reapplying it to
// a share already past delivery is a no-op, never a backward move.
func (s *ShareService) MarkDelivered(ctx context.Context, callerID primitive.ObjectID, callerEmail, transactionID string) (*models.Share, error) {
	share, err := s.getForParty(ctx, callerID, callerEmail, transactionID)
	if err != nil {
		return nil, err
	}

	won, err := s.shareRepo.MarkDelivered(ctx, share.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !won {
		// Someone else moved the share first. Past delivery is fine;
		// terminal states refuse the transition.
		share, err = s.shareRepo.GetByID(ctx, share.ID)
		if err != nil {
			return nil, err
		}
		if share.Status.Terminal() {
			return nil, pkg.ErrInvalidTransition
		}
		return share, nil
	}

	return s.shareRepo.GetByID(ctx, share.ID)
}

// RecordView registers one view by an authenticated party: the counter
// increments, the timeline is stamped and the status advances to viewed.
// Concurrent views each count; none are lost.
func (s *ShareService) RecordView(ctx context.Context, callerID primitive.ObjectID, callerEmail, transactionID string) (*models.Share, error) {
	share, err := s.getForParty(ctx, callerID, callerEmail, transactionID)
	if err != nil {
		return nil, err
	}
	return s.registerView(ctx, share)
}

// AccessByToken is the unauthenticated link/qr access path: token lookup,
// password check, then the same guarded view registration. No state is
// touched until the credentials pass.
func (s *ShareService) AccessByToken(ctx context.Context, token, password string) (*ShareProjection, error) {
	share, err := s.shareRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if share.PasswordHash != "" {
		if password == "" {
			return nil, pkg.ErrSharePasswordRequired
		}
		if !pkg.VerifyPassword(password, share.PasswordHash) {
			return nil, pkg.ErrInvalidSharePassword
		}
	}

	updated, err := s.registerView(ctx, share)
	if err != nil {
		return nil, err
	}

	file, err := s.fileRepo.GetByID(ctx, updated.FileID)
	if err != nil {
		return nil, err
	}
	return s.project(updated, file), nil
}

// registerView runs the guarded view registration and maps a refused update
// to the precise reason: revoked, expired, view budget, or a deleted file.
func (s *ShareService) registerView(ctx context.Context, share *models.Share) (*models.Share, error) {
	if !share.Permissions.View {
		return nil, pkg.ErrForbidden
	}

	// A share on a deleted file stays in listings but admits no new views.
	file, err := s.fileRepo.GetByID(ctx, share.FileID)
	if err != nil {
		return nil, err
	}
	if file.Deleted() {
		return nil, pkg.ErrShareExpired
	}

	now := s.now()
	updated, err := s.shareRepo.RegisterView(ctx, share.ID, now)
	if err == nil {
		return updated, nil
	}
	if !pkg.ErrShareNotFound.Is(err) {
		return nil, err
	}

	// The guarded update matched nothing; reload to name the reason.
	current, loadErr := s.shareRepo.GetByID(ctx, share.ID)
	if loadErr != nil {
		return nil, loadErr
	}
	switch {
	case current.Status == models.ShareStatusRevoked:
		return nil, pkg.ErrShareRevoked
	case current.Status == models.ShareStatusFailed:
		return nil, pkg.ErrInvalidTransition
	case current.Expired(now):
		return nil, pkg.ErrShareExpired
	case current.ViewLimitReached():
		return nil, pkg.ErrShareViewLimit
	default:
		return nil, err
	}
}

// Revoke terminates a share. Only the sender may revoke; revoking an
// already-revoked share is a no-op.
func (s *ShareService) Revoke(ctx context.Context, callerID primitive.ObjectID, callerEmail, transactionID string) (*models.Share, error) {
	share, err := s.getForParty(ctx, callerID, callerEmail, transactionID)
	if err != nil {
		return nil, err
	}
	if share.SenderUserID != callerID {
		return nil, pkg.ErrForbidden
	}

	won, err := s.shareRepo.Revoke(ctx, share.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !won {
		share, err = s.shareRepo.GetByID(ctx, share.ID)
		if err != nil {
			return nil, err
		}
		if share.Status == models.ShareStatusRevoked {
			return share, nil
		}
		return nil, pkg.ErrInvalidTransition
	}

	s.logger.Info("share transaction revoked", map[string]interface{}{
		"transaction_id": transactionID,
		"sender_id":      callerID.Hex(),
	})

	return s.shareRepo.GetByID(ctx, share.ID)
}

// ListSent returns the caller's outgoing transactions, newest first.
func (s *ShareService) ListSent(ctx context.Context, callerID primitive.ObjectID, params *pkg.PaginationParams) ([]*ShareProjection, int64, error) {
	shares, total, err := s.shareRepo.ListBySender(ctx, callerID, params)
	if err != nil {
		return nil, 0, err
	}
	projections, err := s.projectAll(ctx, shares)
	if err != nil {
		return nil, 0, err
	}
	return projections, total, nil
}

// ListReceived returns the caller's inbox: shares addressed to their user ID
// or to their email from before they registered.
func (s *ShareService) ListReceived(ctx context.Context, callerID primitive.ObjectID, callerEmail string, params *pkg.PaginationParams) ([]*ShareProjection, int64, error) {
	shares, total, err := s.shareRepo.ListByRecipient(ctx, callerID, strings.ToLower(callerEmail), params)
	if err != nil {
		return nil, 0, err
	}
	projections, err := s.projectAll(ctx, shares)
	if err != nil {
		return nil, 0, err
	}
	return projections, total, nil
}

// GetTransaction returns full transaction detail to either party.
func (s *ShareService) GetTransaction(ctx context.Context, callerID primitive.ObjectID, callerEmail, transactionID string) (*ShareProjection, error) {
	share, err := s.getForParty(ctx, callerID, callerEmail, transactionID)
	if err != nil {
		return nil, err
	}
	file, err := s.fileRepo.GetByID(ctx, share.FileID)
	if err != nil {
		return nil, err
	}
	return s.project(share, file), nil
}

// getForParty loads a share by transaction ID and hides it from anyone who
// is neither sender nor recipient. Outsiders see the same NotFound a
// nonexistent ID produces.
func (s *ShareService) getForParty(ctx context.Context, callerID primitive.ObjectID, callerEmail, transactionID string) (*models.Share, error) {
	share, err := s.shareRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !s.isParty(share, callerID, callerEmail) {
		return nil, pkg.ErrShareNotFound
	}
	return share, nil
}

func (s *ShareService) isParty(share *models.Share, callerID primitive.ObjectID, callerEmail string) bool {
	if share.SenderUserID == callerID {
		return true
	}
	if share.RecipientUserID != nil && *share.RecipientUserID == callerID {
		return true
	}
	return share.RecipientEmail != "" && strings.EqualFold(share.RecipientEmail, callerEmail)
}

func (s *ShareService) project(share *models.Share, file *models.File) *ShareProjection {
	p := &ShareProjection{Share: share}
	if file != nil {
		p.File = &ShareFileInfo{
			ID:        file.ID,
			Filename:  file.Filename,
			SizeBytes: file.SizeBytes,
			MimeType:  file.MimeType,
			Deleted:   file.Deleted(),
		}
	}
	return p
}

func (s *ShareService) projectAll(ctx context.Context, shares []*models.Share) ([]*ShareProjection, error) {
	projections := make([]*ShareProjection, 0, len(shares))
	for _, share := range shares {
		file, err := s.fileRepo.GetByID(ctx, share.FileID)
		if err != nil {
			if pkg.ErrFileNotFound.Is(err) {
				// The file row is gone entirely; keep the transaction.
				projections = append(projections, s.project(share, nil))
				continue
			}
			return nil, err
		}
		projections = append(projections, s.project(share, file))
	}
	return projections, nil
}

// Receipt is the immutable proof of a transaction.
type Receipt struct {
	ReceiptID             string             `json:"receiptId"`
	TransactionID         string             `json:"transactionId"`
	Status                string             `json:"status"`
	SenderID              primitive.ObjectID `json:"senderId"`
	RecipientID           string             `json:"recipientId,omitempty"`
	RecipientEmail        string             `json:"recipientEmail,omitempty"`
	FileChecksum          string             `json:"fileChecksum"`
	CreatedAt             time.Time          `json:"createdAt"`
	VerificationSignature string             `json:"verificationSignature"`
}

// ReceiptStatusSuccess is surfaced for every share on the happy path;
// revoked and failed shares surface their literal status.
const ReceiptStatusSuccess = "SUCCESS"

// Receipt produces the receipt for a transaction the caller is party to.
// Read-only: generating a receipt never mutates the share.
func (s *ShareService) Receipt(ctx context.Context, callerID primitive.ObjectID, callerEmail, transactionID string) (*Receipt, error) {
	share, err := s.getForParty(ctx, callerID, callerEmail, transactionID)
	if err != nil {
		return nil, err
	}
	file, err := s.fileRepo.GetByID(ctx, share.FileID)
	if err != nil {
		return nil, err
	}
	return buildReceipt(share, file), nil
}

// VerifyReceipt recomputes the signature from current share and file state.
// A mismatch means the receipt, the share, or the file checksum changed
// since issuance, and is surfaced as a verification failure.
func (s *ShareService) VerifyReceipt(ctx context.Context, callerID primitive.ObjectID, callerEmail string, receipt *Receipt) error {
	share, err := s.getForParty(ctx, callerID, callerEmail, receipt.TransactionID)
	if err != nil {
		return err
	}
	file, err := s.fileRepo.GetByID(ctx, share.FileID)
	if err != nil {
		return err
	}
	if buildReceipt(share, file).VerificationSignature != receipt.VerificationSignature {
		return pkg.ErrReceiptMismatch
	}
	return nil
}

func buildReceipt(share *models.Share, file *models.File) *Receipt {
	recipientID := ""
	if share.RecipientUserID != nil {
		recipientID = share.RecipientUserID.Hex()
	}

	status := ReceiptStatusSuccess
	if share.Status.Terminal() {
		status = string(share.Status)
	}

	return &Receipt{
		ReceiptID:             receiptID(share.TransactionID),
		TransactionID:         share.TransactionID,
		Status:                status,
		SenderID:              share.SenderUserID,
		RecipientID:           recipientID,
		RecipientEmail:        share.RecipientEmail,
		FileChecksum:          file.ChecksumSHA256,
		CreatedAt:             share.CreatedAt,
		VerificationSignature: receiptSignature(share, file),
	}
}

// receiptID derives the deterministic short form of a transaction ID.
func receiptID(transactionID string) string {
	suffix := transactionID
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return "RCPT-" + suffix
}

// receiptSignature hashes the fields that define the transaction. Any drift
// in them, a stale checksum included, changes the signature.
func receiptSignature(share *models.Share, file *models.File) string {
	recipient := share.RecipientEmail
	if share.RecipientUserID != nil {
		recipient = share.RecipientUserID.Hex()
	}
	payload := fmt.Sprintf("%s:%s:%s:%s:%s",
		share.TransactionID,
		share.CreatedAt.UTC().Format(time.RFC3339Nano),
		share.SenderUserID.Hex(),
		recipient,
		file.ChecksumSHA256,
	)
	return pkg.HashString(payload)
}
