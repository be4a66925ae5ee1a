package services

import (
	"context"
	"testing"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type folderFixture struct {
	service    *FolderService
	folderRepo *fakeFolderRepo
	fileRepo   *fakeFileRepo
	ownerID    primitive.ObjectID
}

func newFolderFixture(t *testing.T) *folderFixture {
	t.Helper()
	f := &folderFixture{
		folderRepo: newFakeFolderRepo(),
		fileRepo:   newFakeFileRepo(),
		ownerID:    primitive.NewObjectID(),
	}
	f.service = NewFolderService(f.folderRepo, f.fileRepo, pkg.NewValidator(), pkg.NewLogger(pkg.LevelError))
	return f
}

func (f *folderFixture) create(t *testing.T, name string, parentID *primitive.ObjectID) *models.Folder {
	t.Helper()
	req := &CreateFolderRequest{Name: name}
	if parentID != nil {
		hex := parentID.Hex()
		req.ParentFolderID = &hex
	}
	folder, err := f.service.Create(context.Background(), f.ownerID, req)
	require.NoError(t, err)
	return folder
}

func TestFolderCreate_PositionsAreSequential(t *testing.T) {
	f := newFolderFixture(t)

	a := f.create(t, "a", nil)
	b := f.create(t, "b", nil)
	c := f.create(t, "c", nil)

	assert.Equal(t, 0, a.Position)
	assert.Equal(t, 1, b.Position)
	assert.Equal(t, 2, c.Position)
}

func TestFolderDelete_CompactsPositions(t *testing.T) {
	f := newFolderFixture(t)

	f.create(t, "a", nil)
	b := f.create(t, "b", nil)
	f.create(t, "c", nil)
	f.create(t, "d", nil)

	require.NoError(t, f.service.Delete(context.Background(), f.ownerID, b.ID))

	folders, err := f.service.List(context.Background(), f.ownerID)
	require.NoError(t, err)
	require.Len(t, folders, 3)
	for i, folder := range folders {
		assert.Equal(t, i, folder.Position, "positions must stay dense after delete")
	}
}

func TestFolderDelete_CascadesAndDetachesFiles(t *testing.T) {
	f := newFolderFixture(t)

	parent := f.create(t, "parent", nil)
	middle := f.create(t, "middle", &parent.ID)
	child := f.create(t, "child", &middle.ID)

	fileInMiddle := &models.File{
		OwnerUserID: f.ownerID,
		FolderID:    &middle.ID,
		Filename:    "doc.txt",
		Status:      models.FileStatusUploaded,
	}
	require.NoError(t, f.fileRepo.Create(context.Background(), fileInMiddle))
	fileInChild := &models.File{
		OwnerUserID: f.ownerID,
		FolderID:    &child.ID,
		Filename:    "deep.txt",
		Status:      models.FileStatusUploaded,
	}
	require.NoError(t, f.fileRepo.Create(context.Background(), fileInChild))

	require.NoError(t, f.service.Delete(context.Background(), f.ownerID, middle.ID))

	// Files anywhere in the subtree survive, folderless.
	for _, file := range []*models.File{fileInMiddle, fileInChild} {
		got, err := f.fileRepo.GetByID(context.Background(), file.ID)
		require.NoError(t, err)
		assert.Nil(t, got.FolderID)
	}

	// The whole subtree is gone; the parent is untouched.
	_, err := f.folderRepo.GetByID(context.Background(), middle.ID)
	assert.ErrorIs(t, err, pkg.ErrFolderNotFound)
	_, err = f.folderRepo.GetByID(context.Background(), child.ID)
	assert.ErrorIs(t, err, pkg.ErrFolderNotFound)
	_, err = f.folderRepo.GetByID(context.Background(), parent.ID)
	require.NoError(t, err)
}

func TestFolderDelete_CascadeCompactsPositions(t *testing.T) {
	f := newFolderFixture(t)

	root := f.create(t, "root", nil)    // position 0
	f.create(t, "inside", &root.ID)     // position 1, deleted with root
	survivor := f.create(t, "sib", nil) // position 2

	require.NoError(t, f.service.Delete(context.Background(), f.ownerID, root.ID))

	reloaded, err := f.folderRepo.GetByID(context.Background(), survivor.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Position)
}

func TestFolderMove_RejectsSelfParent(t *testing.T) {
	f := newFolderFixture(t)
	folder := f.create(t, "a", nil)

	_, err := f.service.Move(context.Background(), f.ownerID, folder.ID, &folder.ID)
	assert.ErrorIs(t, err, pkg.ErrFolderCycle)
}

func TestFolderMove_RejectsCycle(t *testing.T) {
	f := newFolderFixture(t)

	a := f.create(t, "a", nil)
	b := f.create(t, "b", &a.ID)
	c := f.create(t, "c", &b.ID)

	// Moving the root under its own grandchild closes a loop.
	_, err := f.service.Move(context.Background(), f.ownerID, a.ID, &c.ID)
	assert.ErrorIs(t, err, pkg.ErrFolderCycle)

	// The tree is untouched.
	reloaded, err := f.folderRepo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ParentFolderID)
}

func TestFolderMove_ValidReparent(t *testing.T) {
	f := newFolderFixture(t)

	a := f.create(t, "a", nil)
	b := f.create(t, "b", nil)

	moved, err := f.service.Move(context.Background(), f.ownerID, b.ID, &a.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.ParentFolderID)
	assert.Equal(t, a.ID, *moved.ParentFolderID)

	// Moving to the root clears the parent.
	moved, err = f.service.Move(context.Background(), f.ownerID, b.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, moved.ParentFolderID)
}

func TestFolder_OwnershipIsEnforced(t *testing.T) {
	f := newFolderFixture(t)
	folder := f.create(t, "private", nil)

	stranger := primitive.NewObjectID()
	_, err := f.service.Get(context.Background(), stranger, folder.ID)
	assert.ErrorIs(t, err, pkg.ErrFolderNotFound)

	err = f.service.Delete(context.Background(), stranger, folder.ID)
	assert.ErrorIs(t, err, pkg.ErrFolderNotFound)
}
