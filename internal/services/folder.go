package services

import (
	"context"
	"sort"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"
	"github.com/fileflow/fileflow/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxFolderDepth bounds the parent-chain walk so a corrupted tree cannot
// spin the cycle check forever.
const maxFolderDepth = 64

// FolderService owns the folder tree: sibling ordering by position, cycle
// rejection at write time, and position compaction on delete.
type FolderService struct {
	folderRepo repository.FolderRepository
	fileRepo   repository.FileRepository
	validator  *pkg.Validator
	logger     *pkg.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(
	folderRepo repository.FolderRepository,
	fileRepo repository.FileRepository,
	validator *pkg.Validator,
	logger *pkg.Logger,
) *FolderService {
	return &FolderService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		validator:  validator,
		logger:     logger,
	}
}

// CreateFolderRequest creates a folder.
type CreateFolderRequest struct {
	Name           string  `json:"name" validate:"required,min=1,max=255"`
	Description    string  `json:"description" validate:"omitempty,max=1000"`
	Icon           string  `json:"icon" validate:"omitempty,max=64"`
	Color          string  `json:"color" validate:"omitempty,color"`
	ParentFolderID *string `json:"parentFolderId" validate:"omitempty,objectid"`
}

// Create appends a folder at the end of the owner's ordering.
func (s *FolderService) Create(ctx context.Context, ownerID primitive.ObjectID, req *CreateFolderRequest) (*models.Folder, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var parentID *primitive.ObjectID
	if req.ParentFolderID != nil {
		id, err := pkg.ObjectIDFromParam(*req.ParentFolderID)
		if err != nil {
			return nil, err
		}
		if _, err := s.folderRepo.GetOwned(ctx, ownerID, id); err != nil {
			return nil, err
		}
		parentID = &id
	}

	maxPos, found, err := s.folderRepo.MaxPosition(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	position := 0
	if found {
		position = maxPos + 1
	}

	folder := &models.Folder{
		OwnerUserID:    ownerID,
		ParentFolderID: parentID,
		Name:           req.Name,
		Description:    req.Description,
		Icon:           req.Icon,
		Color:          req.Color,
		Visibility:     models.FolderVisibilityPrivate,
		Position:       position,
	}

	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// List returns the owner's folders in position order, with live file counts.
func (s *FolderService) List(ctx context.Context, ownerID primitive.ObjectID) ([]*models.FolderWithCount, error) {
	return s.folderRepo.ListByOwner(ctx, ownerID)
}

// Get returns a folder the caller owns.
func (s *FolderService) Get(ctx context.Context, ownerID, folderID primitive.ObjectID) (*models.Folder, error) {
	return s.folderRepo.GetOwned(ctx, ownerID, folderID)
}

// UpdateFolderRequest changes folder metadata.
type UpdateFolderRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Icon        *string `json:"icon" validate:"omitempty,max=64"`
	Color       *string `json:"color" validate:"omitempty,color"`
}

func (s *FolderService) Update(ctx context.Context, ownerID, folderID primitive.ObjectID, req *UpdateFolderRequest) (*models.Folder, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.folderRepo.GetOwned(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if len(updates) > 0 {
		if err := s.folderRepo.Update(ctx, folderID, updates); err != nil {
			return nil, err
		}
	}

	return s.folderRepo.GetByID(ctx, folderID)
}

// Move reparents a folder. A move that would make the folder its own
// ancestor is rejected before anything is written.
func (s *FolderService) Move(ctx context.Context, ownerID, folderID primitive.ObjectID, newParentID *primitive.ObjectID) (*models.Folder, error) {
	folder, err := s.folderRepo.GetOwned(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	if newParentID != nil {
		if *newParentID == folderID {
			return nil, pkg.ErrFolderCycle
		}
		parent, err := s.folderRepo.GetOwned(ctx, ownerID, *newParentID)
		if err != nil {
			return nil, err
		}
		if err := s.checkNoCycle(ctx, folderID, parent); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{"parent_folder_id": newParentID}
	if err := s.folderRepo.Update(ctx, folder.ID, updates); err != nil {
		return nil, err
	}
	return s.folderRepo.GetByID(ctx, folderID)
}

// checkNoCycle walks the parent chain from the proposed parent to the root;
// finding the moved folder on the way means the move closes a loop.
func (s *FolderService) checkNoCycle(ctx context.Context, movedID primitive.ObjectID, parent *models.Folder) error {
	current := parent
	for depth := 0; depth < maxFolderDepth; depth++ {
		if current.ID == movedID {
			return pkg.ErrFolderCycle
		}
		if current.ParentFolderID == nil {
			return nil
		}
		next, err := s.folderRepo.GetByID(ctx, *current.ParentFolderID)
		if err != nil {
			if pkg.ErrFolderNotFound.Is(err) {
				// Dangling parent pointer terminates the chain.
				return nil
			}
			return err
		}
		current = next
	}
	return pkg.ErrFolderCycle
}

// Delete removes a folder and every folder beneath it. Files anywhere in
// the subtree are detached (not deleted), and surviving positions are
// compacted so the ordering stays dense.
func (s *FolderService) Delete(ctx context.Context, ownerID, folderID primitive.ObjectID) error {
	folder, err := s.folderRepo.GetOwned(ctx, ownerID, folderID)
	if err != nil {
		return err
	}

	subtree, err := s.collectSubtree(ctx, folder)
	if err != nil {
		return err
	}

	for _, f := range subtree {
		if err := s.fileRepo.DetachFolder(ctx, f.ID); err != nil {
			return err
		}
		if err := s.folderRepo.Delete(ctx, f.ID); err != nil {
			return err
		}
	}

	// Compact the highest positions first; compacting a lower one first
	// would shift the higher targets before their turn.
	positions := make([]int, 0, len(subtree))
	for _, f := range subtree {
		positions = append(positions, f.Position)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))
	for _, pos := range positions {
		if err := s.folderRepo.CompactPositions(ctx, ownerID, pos); err != nil {
			return err
		}
	}

	s.logger.Info("folder deleted", map[string]interface{}{
		"folder_id": folderID.Hex(),
		"owner_id":  ownerID.Hex(),
		"folders":   len(subtree),
	})

	return nil
}

// collectSubtree returns the folder and all of its descendants, level by
// level, bounded by the same depth cap as the cycle check.
func (s *FolderService) collectSubtree(ctx context.Context, root *models.Folder) ([]*models.Folder, error) {
	subtree := []*models.Folder{root}
	level := []*models.Folder{root}
	for depth := 0; depth < maxFolderDepth && len(level) > 0; depth++ {
		var next []*models.Folder
		for _, f := range level {
			children, err := s.folderRepo.ListChildren(ctx, f.ID)
			if err != nil {
				return nil, err
			}
			next = append(next, children...)
		}
		subtree = append(subtree, next...)
		level = next
	}
	return subtree, nil
}
