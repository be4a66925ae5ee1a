package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Folder struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerUserID    primitive.ObjectID  `bson:"owner_user_id" json:"ownerUserId"`
	ParentFolderID *primitive.ObjectID `bson:"parent_folder_id,omitempty" json:"parentFolderId,omitempty"`

	Name        string `bson:"name" json:"name" validate:"required,min=1,max=255"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	Icon        string `bson:"icon" json:"icon"`
	Color       string `bson:"color" json:"color" validate:"omitempty,color"`

	Visibility string `bson:"visibility" json:"visibility"`

	// Position orders siblings of the same owner. Positions are compacted
	// when a folder is removed so they stay dense.
	Position int `bson:"position" json:"position"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

const (
	FolderVisibilityPrivate = "private"
	FolderVisibilityShared  = "shared"
)

// FolderWithCount is the listing projection: a folder plus the number of
// live files it contains.
type FolderWithCount struct {
	Folder    `bson:",inline"`
	FileCount int64 `bson:"file_count" json:"fileCount"`
}
