package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. Guarded operations take the store lock for
// the whole check-and-write, mirroring the single-document atomicity the
// real store provides.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return pkg.ErrEmailAlreadyTaken
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, pkg.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.DeletedAt == nil {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pkg.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return pkg.ErrUserNotFound
	}
	return nil
}

func (r *fakeUserRepo) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return pkg.ErrUserNotFound
	}
	now := time.Now()
	u.DeletedAt = &now
	return nil
}

func (r *fakeUserRepo) ReserveStorage(ctx context.Context, id primitive.ObjectID, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return pkg.ErrUserNotFound
	}
	if u.StorageUsedBytes+size > u.StorageQuotaBytes {
		return pkg.ErrQuotaExceeded
	}
	u.StorageUsedBytes += size
	return nil
}

func (r *fakeUserRepo) ReleaseStorage(ctx context.Context, id primitive.ObjectID, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return pkg.ErrUserNotFound
	}
	u.StorageUsedBytes -= size
	if u.StorageUsedBytes < 0 {
		u.StorageUsedBytes = 0
	}
	return nil
}

type fakeFileRepo struct {
	mu    sync.Mutex
	files map[primitive.ObjectID]*models.File
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[primitive.ObjectID]*models.File)}
}

func (r *fakeFileRepo) Create(ctx context.Context, file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	file.ID = primitive.NewObjectID()
	file.CreatedAt = time.Now()
	file.UpdatedAt = file.CreatedAt
	clone := *file
	r.files[file.ID] = &clone
	return nil
}

func (r *fakeFileRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, pkg.ErrFileNotFound
	}
	clone := *f
	return &clone, nil
}

func (r *fakeFileRepo) GetOwned(ctx context.Context, ownerID, id primitive.ObjectID) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok || f.OwnerUserID != ownerID || f.DeletedAt != nil {
		return nil, pkg.ErrFileNotFound
	}
	clone := *f
	return &clone, nil
}

func (r *fakeFileRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok || f.DeletedAt != nil {
		return pkg.ErrFileNotFound
	}
	if v, ok := updates["filename"]; ok {
		f.Filename = v.(string)
	}
	if v, ok := updates["folder_id"]; ok {
		if id, ok := v.(primitive.ObjectID); ok {
			f.FolderID = &id
		} else {
			f.FolderID = nil
		}
	}
	return nil
}

func (r *fakeFileRepo) ListByOwner(ctx context.Context, ownerID primitive.ObjectID, folderID *primitive.ObjectID, params *pkg.PaginationParams) ([]*models.File, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.File
	for _, f := range r.files {
		if f.OwnerUserID != ownerID || f.DeletedAt != nil || f.Status != models.FileStatusUploaded {
			continue
		}
		if folderID != nil && (f.FolderID == nil || *f.FolderID != *folderID) {
			continue
		}
		clone := *f
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (r *fakeFileRepo) ListStaleUploading(ctx context.Context, before time.Time, limit int64) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.File
	for _, f := range r.files {
		if f.Status != models.FileStatusUploading || f.DeletedAt != nil || !f.CreatedAt.Before(before) {
			continue
		}
		if int64(len(out)) == limit {
			break
		}
		clone := *f
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeFileRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.FileStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok || f.DeletedAt != nil || f.Status != from {
		return false, nil
	}
	f.Status = to
	return true, nil
}

func (r *fakeFileRepo) SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok || f.DeletedAt != nil {
		return false, nil
	}
	f.DeletedAt = &at
	return true, nil
}

func (r *fakeFileRepo) FinalizeChecksum(ctx context.Context, id primitive.ObjectID, checksum string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if ok && f.ChecksumSHA256 == models.ChecksumPending {
		f.ChecksumSHA256 = checksum
	}
	return nil
}

func (r *fakeFileRepo) DetachFolder(ctx context.Context, folderID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.FolderID != nil && *f.FolderID == folderID {
			f.FolderID = nil
		}
	}
	return nil
}

// setChecksum force-writes a checksum, bypassing the immutability guard.
// Tests use it to simulate tampering.
func (r *fakeFileRepo) setChecksum(id primitive.ObjectID, checksum string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[id].ChecksumSHA256 = checksum
}

type fakeFolderRepo struct {
	mu      sync.Mutex
	folders map[primitive.ObjectID]*models.Folder
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: make(map[primitive.ObjectID]*models.Folder)}
}

func (r *fakeFolderRepo) Create(ctx context.Context, folder *models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	folder.ID = primitive.NewObjectID()
	folder.CreatedAt = time.Now()
	folder.UpdatedAt = folder.CreatedAt
	clone := *folder
	r.folders[folder.ID] = &clone
	return nil
}

func (r *fakeFolderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok {
		return nil, pkg.ErrFolderNotFound
	}
	clone := *f
	return &clone, nil
}

func (r *fakeFolderRepo) GetOwned(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok || f.OwnerUserID != ownerID {
		return nil, pkg.ErrFolderNotFound
	}
	clone := *f
	return &clone, nil
}

func (r *fakeFolderRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok {
		return pkg.ErrFolderNotFound
	}
	if v, ok := updates["name"]; ok {
		f.Name = v.(string)
	}
	if v, ok := updates["parent_folder_id"]; ok {
		if id, ok := v.(*primitive.ObjectID); ok {
			f.ParentFolderID = id
		} else {
			f.ParentFolderID = nil
		}
	}
	return nil
}

func (r *fakeFolderRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.folders[id]; !ok {
		return pkg.ErrFolderNotFound
	}
	delete(r.folders, id)
	return nil
}

func (r *fakeFolderRepo) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.FolderWithCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FolderWithCount
	for _, f := range r.folders {
		if f.OwnerUserID != ownerID {
			continue
		}
		clone := *f
		out = append(out, &models.FolderWithCount{Folder: clone})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeFolderRepo) ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Folder
	for _, f := range r.folders {
		if f.ParentFolderID != nil && *f.ParentFolderID == parentID {
			clone := *f
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) MaxPosition(ctx context.Context, ownerID primitive.ObjectID) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max, found := 0, false
	for _, f := range r.folders {
		if f.OwnerUserID != ownerID {
			continue
		}
		if !found || f.Position > max {
			max = f.Position
			found = true
		}
	}
	return max, found, nil
}

func (r *fakeFolderRepo) CompactPositions(ctx context.Context, ownerID primitive.ObjectID, abovePosition int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.folders {
		if f.OwnerUserID == ownerID && f.Position > abovePosition {
			f.Position--
		}
	}
	return nil
}

type fakeShareRepo struct {
	mu     sync.Mutex
	shares map[primitive.ObjectID]*models.Share
	byTxn  map[string]primitive.ObjectID
}

func newFakeShareRepo() *fakeShareRepo {
	return &fakeShareRepo{
		shares: make(map[primitive.ObjectID]*models.Share),
		byTxn:  make(map[string]primitive.ObjectID),
	}
}

func (r *fakeShareRepo) Create(ctx context.Context, share *models.Share) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTxn[share.TransactionID]; exists {
		return pkg.ErrDuplicateTransaction
	}
	share.ID = primitive.NewObjectID()
	share.CreatedAt = time.Now()
	share.UpdatedAt = share.CreatedAt
	clone := *share
	r.shares[share.ID] = &clone
	r.byTxn[share.TransactionID] = share.ID
	return nil
}

func (r *fakeShareRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shares[id]
	if !ok {
		return nil, pkg.ErrShareNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *fakeShareRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byTxn[transactionID]
	if !ok {
		return nil, pkg.ErrShareNotFound
	}
	clone := *r.shares[id]
	return &clone, nil
}

func (r *fakeShareRepo) GetByToken(ctx context.Context, token string) (*models.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.shares {
		if s.ShareToken != "" && s.ShareToken == token {
			clone := *s
			return &clone, nil
		}
	}
	return nil, pkg.ErrShareNotFound
}

func (r *fakeShareRepo) ListBySender(ctx context.Context, senderID primitive.ObjectID, params *pkg.PaginationParams) ([]*models.Share, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Share
	for _, s := range r.shares {
		if s.SenderUserID == senderID {
			clone := *s
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, int64(len(out)), nil
}

func (r *fakeShareRepo) ListByRecipient(ctx context.Context, recipientID primitive.ObjectID, email string, params *pkg.PaginationParams) ([]*models.Share, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Share
	for _, s := range r.shares {
		matchesID := s.RecipientUserID != nil && *s.RecipientUserID == recipientID
		matchesEmail := s.RecipientEmail != "" && strings.EqualFold(s.RecipientEmail, email)
		if matchesID || matchesEmail {
			clone := *s
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, int64(len(out)), nil
}

func (r *fakeShareRepo) MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shares[id]
	if !ok || s.Status != models.ShareStatusSent {
		return false, nil
	}
	s.Status = models.ShareStatusDelivered
	s.DeliveredAt = &at
	return true, nil
}

func (r *fakeShareRepo) RegisterView(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shares[id]
	if !ok || s.Status.Terminal() || s.Expired(at) || s.ViewLimitReached() {
		return nil, pkg.ErrShareNotFound
	}
	s.ViewCount++
	if s.FirstViewedAt == nil {
		first := at
		s.FirstViewedAt = &first
	}
	last := at
	s.LastViewedAt = &last
	s.Status = models.ShareStatusViewed
	clone := *s
	return &clone, nil
}

func (r *fakeShareRepo) Revoke(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shares[id]
	if !ok || s.Status.Terminal() {
		return false, nil
	}
	s.Status = models.ShareStatusRevoked
	s.RevokedAt = &at
	return true, nil
}

func sortNewestFirst(shares []*models.Share) {
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].CreatedAt.After(shares[j].CreatedAt)
	})
}

// fakeStorage keeps blobs in a map and issues fake presigned URLs.
type fakeStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: make(map[string][]byte)}
}

func (s *fakeStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *fakeStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, pkg.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *fakeStorage) PresignUpload(ctx context.Context, key string, contentType string, expiry time.Duration) (string, error) {
	return "https://storage.test/upload/" + key, nil
}

func (s *fakeStorage) PresignDownload(ctx context.Context, key string, filename string, expiry time.Duration) (string, error) {
	return "https://storage.test/download/" + key, nil
}

func (s *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

// put stores a blob directly, simulating the client's presigned PUT.
func (s *fakeStorage) put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
}

// fakeQueue records enqueued job types without running anything.
type fakeQueue struct {
	mu       sync.Mutex
	enqueued []models.JobType
}

func (q *fakeQueue) Enqueue(ctx context.Context, jobType models.JobType, file *models.File) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, jobType)
	return nil
}
