package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email" validate:"required,email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty" validate:"omitempty,phone"`
	Name         string             `bson:"name" json:"name" validate:"required,min=1,max=255"`
	PasswordHash string             `bson:"password_hash" json:"-"`

	Role       UserRole `bson:"role" json:"role"`
	IsActive   bool     `bson:"is_active" json:"isActive"`
	IsVerified bool     `bson:"is_verified" json:"isVerified"`

	AvatarURL string `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
	Bio       string `bson:"bio,omitempty" json:"bio,omitempty" validate:"max=500"`

	// Quota ledger: bytes consumed versus allotted. The invariant
	// 0 <= used <= quota holds at rest; mutations go through guarded
	// repository operations only.
	Plan              string `bson:"plan" json:"plan"`
	StorageUsedBytes  int64  `bson:"storage_used_bytes" json:"storageUsedBytes"`
	StorageQuotaBytes int64  `bson:"storage_quota_bytes" json:"storageQuotaBytes"`

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
	DeletedAt   *time.Time `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
}

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

const (
	PlanFree    = "free"
	PlanPremium = "premium"
	PlanFamily  = "family"
)

// StorageAvailable returns the bytes still free under the user's quota.
func (u *User) StorageAvailable() int64 {
	if u.StorageQuotaBytes < u.StorageUsedBytes {
		return 0
	}
	return u.StorageQuotaBytes - u.StorageUsedBytes
}
