package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Share is a file transaction record: one file sent from a sender to a
// recipient, with its own lifecycle independent of the file's.
type Share struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// What's being shared
	FileID primitive.ObjectID `bson:"file_id" json:"fileId"`

	// Sender snapshot (kept stable even if the user profile changes later)
	SenderUserID primitive.ObjectID `bson:"sender_user_id" json:"senderUserId"`
	SenderName   string             `bson:"sender_name" json:"senderName"`
	SenderEmail  string             `bson:"sender_email" json:"senderEmail"`

	// Recipient: a registered user, or an external email/phone contact
	RecipientUserID *primitive.ObjectID `bson:"recipient_user_id,omitempty" json:"recipientUserId,omitempty"`
	RecipientEmail  string              `bson:"recipient_email,omitempty" json:"recipientEmail,omitempty"`
	RecipientPhone  string              `bson:"recipient_phone,omitempty" json:"recipientPhone,omitempty"`
	RecipientName   string              `bson:"recipient_name,omitempty" json:"recipientName,omitempty"`

	// Destination on the recipient side
	TargetFolderID   *primitive.ObjectID `bson:"target_folder_id,omitempty" json:"targetFolderId,omitempty"`
	TargetFolderName string              `bson:"target_folder_name" json:"targetFolderName"`

	// Transaction details
	Message       string      `bson:"message,omitempty" json:"message,omitempty"`
	ShareType     ShareType   `bson:"share_type" json:"shareType"`
	TransactionID string      `bson:"transaction_id" json:"transactionId"`
	Status        ShareStatus `bson:"status" json:"status"`

	// Link sharing
	ShareToken   string     `bson:"share_token,omitempty" json:"shareToken,omitempty"`
	PasswordHash string     `bson:"password_hash,omitempty" json:"-"`
	ExpiresAt    *time.Time `bson:"expires_at,omitempty" json:"expiresAt,omitempty"`
	MaxViews     int        `bson:"max_views,omitempty" json:"maxViews,omitempty"`
	ViewCount    int        `bson:"view_count" json:"viewCount"`

	Permissions SharePermissions `bson:"permissions" json:"permissions"`

	// Transaction timeline
	DeliveredAt   *time.Time `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	FirstViewedAt *time.Time `bson:"first_viewed_at,omitempty" json:"firstViewedAt,omitempty"`
	LastViewedAt  *time.Time `bson:"last_viewed_at,omitempty" json:"lastViewedAt,omitempty"`
	RevokedAt     *time.Time `bson:"revoked_at,omitempty" json:"revokedAt,omitempty"`

	// Audit
	IPAddress string `bson:"ip_address,omitempty" json:"-"`
	UserAgent string `bson:"user_agent,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

type ShareType string

const (
	ShareTypeDirect ShareType = "direct"
	ShareTypeLink   ShareType = "link"
	ShareTypeQR     ShareType = "qr"
)

type ShareStatus string

const (
	ShareStatusSent      ShareStatus = "sent"
	ShareStatusDelivered ShareStatus = "delivered"
	ShareStatusViewed    ShareStatus = "viewed"
	ShareStatusFailed    ShareStatus = "failed"
	ShareStatusRevoked   ShareStatus = "revoked"
)

// Rank orders statuses along the happy path. Terminal states rank above
// everything so comparisons never move a share backward out of them.
func (s ShareStatus) Rank() int {
	switch s {
	case ShareStatusSent:
		return 0
	case ShareStatusDelivered:
		return 1
	case ShareStatusViewed:
		return 2
	case ShareStatusFailed, ShareStatusRevoked:
		return 3
	default:
		return -1
	}
}

// Terminal reports whether the status is absorbing.
func (s ShareStatus) Terminal() bool {
	return s == ShareStatusFailed || s == ShareStatusRevoked
}

// CanTransitionTo reports whether moving from s to next respects the partial
// order: sent -> delivered -> viewed, with failed/revoked reachable from any
// non-terminal state and absorbing once entered.
func (s ShareStatus) CanTransitionTo(next ShareStatus) bool {
	if s.Terminal() {
		return false
	}
	if next.Terminal() {
		return true
	}
	return next.Rank() > s.Rank()
}

type SharePermissions struct {
	View     bool `bson:"view" json:"view"`
	Download bool `bson:"download" json:"download"`
	Share    bool `bson:"share" json:"share"`
}

// DefaultSharePermissions are applied when a share is created without
// explicit permissions.
func DefaultSharePermissions() SharePermissions {
	return SharePermissions{View: true, Download: true, Share: false}
}

// Expired reports whether the share's expiry has passed at the given time.
func (s *Share) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// ViewLimitReached reports whether the configured view budget is exhausted.
func (s *Share) ViewLimitReached() bool {
	return s.MaxViews > 0 && s.ViewCount >= s.MaxViews
}
