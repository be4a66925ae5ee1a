package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/fileflow/fileflow/internal/models"
	"github.com/fileflow/fileflow/internal/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type shareFixture struct {
	service   *ShareService
	shareRepo *fakeShareRepo
	fileRepo  *fakeFileRepo
	userRepo  *fakeUserRepo

	sender    *models.User
	recipient *models.User
	outsider  *models.User
	file      *models.File

	clock time.Time
	mu    sync.Mutex
}

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()

	f := &shareFixture{
		shareRepo: newFakeShareRepo(),
		fileRepo:  newFakeFileRepo(),
		userRepo:  newFakeUserRepo(),
		clock:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	f.sender = f.addUser(t, "alice@example.com", "Alice")
	f.recipient = f.addUser(t, "bob@example.com", "Bob")
	f.outsider = f.addUser(t, "mallory@example.com", "Mallory")
	f.file = f.addFile(t, f.sender.ID, models.FileStatusUploaded)

	f.service = NewShareService(
		f.shareRepo, f.fileRepo, f.userRepo,
		pkg.NewValidator(), pkg.NewLogger(pkg.LevelError),
	).WithClock(f.now)

	return f
}

func (f *shareFixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *shareFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(d)
}

func (f *shareFixture) addUser(t *testing.T, email, name string) *models.User {
	t.Helper()
	u := &models.User{
		Email:             email,
		Name:              name,
		Role:              models.RoleUser,
		IsActive:          true,
		Plan:              models.PlanFree,
		StorageQuotaBytes: 1 << 30,
	}
	require.NoError(t, f.userRepo.Create(context.Background(), u))
	return u
}

func (f *shareFixture) addFile(t *testing.T, ownerID primitive.ObjectID, status models.FileStatus) *models.File {
	t.Helper()
	file := &models.File{
		OwnerUserID:    ownerID,
		Filename:       "report.pdf",
		SizeBytes:      2048,
		MimeType:       "application/pdf",
		StorageKey:     "files/test/report.pdf",
		ChecksumSHA256: "abc123",
		Version:        1,
		Status:         status,
	}
	require.NoError(t, f.fileRepo.Create(context.Background(), file))
	return file
}

func (f *shareFixture) send(t *testing.T, req *CreateShareRequest) *ShareProjection {
	t.Helper()
	if req == nil {
		req = &CreateShareRequest{
			FileID:         f.file.ID.Hex(),
			RecipientEmail: f.recipient.Email,
			ShareType:      "direct",
		}
	}
	share, err := f.service.Send(context.Background(), f.sender.ID, req)
	require.NoError(t, err)
	return share
}

func TestSend_CreatesTransaction(t *testing.T) {
	f := newShareFixture(t)

	share := f.send(t, nil)

	assert.NotEmpty(t, share.TransactionID)
	assert.Equal(t, models.ShareStatusSent, share.Status)
	assert.Equal(t, 0, share.ViewCount)
	assert.Equal(t, models.DefaultSharePermissions(), share.Permissions)

	// Sender and recipient snapshots are taken at creation time.
	assert.Equal(t, "Alice", share.SenderName)
	assert.Equal(t, "alice@example.com", share.SenderEmail)
	require.NotNil(t, share.RecipientUserID)
	assert.Equal(t, f.recipient.ID, *share.RecipientUserID)
	assert.Equal(t, "Bob", share.RecipientName)

	require.NotNil(t, share.File)
	assert.Equal(t, "report.pdf", share.File.Filename)
}

func TestSend_RequiresRecipient(t *testing.T) {
	f := newShareFixture(t)

	_, err := f.service.Send(context.Background(), f.sender.ID, &CreateShareRequest{
		FileID:    f.file.ID.Hex(),
		ShareType: "direct",
	})
	assert.ErrorIs(t, err, pkg.ErrInvalidInput)
}

func TestSend_FileNotOwned(t *testing.T) {
	f := newShareFixture(t)

	_, err := f.service.Send(context.Background(), f.outsider.ID, &CreateShareRequest{
		FileID:         f.file.ID.Hex(),
		RecipientEmail: f.recipient.Email,
		ShareType:      "direct",
	})
	assert.ErrorIs(t, err, pkg.ErrFileNotFound)
}

func TestSend_FileStillUploading(t *testing.T) {
	f := newShareFixture(t)
	pending := f.addFile(t, f.sender.ID, models.FileStatusUploading)

	_, err := f.service.Send(context.Background(), f.sender.ID, &CreateShareRequest{
		FileID:         pending.ID.Hex(),
		RecipientEmail: f.recipient.Email,
		ShareType:      "direct",
	})
	assert.ErrorIs(t, err, pkg.ErrFileNotReady)
}

func TestSend_LinkShareGetsToken(t *testing.T) {
	f := newShareFixture(t)

	share := f.send(t, &CreateShareRequest{
		FileID:         f.file.ID.Hex(),
		RecipientEmail: "external@example.com",
		ShareType:      "link",
	})
	assert.NotEmpty(t, share.ShareToken)

	direct := f.send(t, nil)
	assert.Empty(t, direct.ShareToken)
}

func TestTransactionID_UniqueAndImmutable(t *testing.T) {
	f := newShareFixture(t)

	seen := make(map[string]bool)
	var first *ShareProjection
	for i := 0; i < 100; i++ {
		share := f.send(t, nil)
		assert.False(t, seen[share.TransactionID], "duplicate transaction ID %s", share.TransactionID)
		seen[share.TransactionID] = true
		if first == nil {
			first = share
		}
	}

	// Transitions never touch the transaction ID.
	_, err := f.service.MarkDelivered(context.Background(), f.recipient.ID, f.recipient.Email, first.TransactionID)
	require.NoError(t, err)
	_, err = f.service.RecordView(context.Background(), f.recipient.ID, f.recipient.Email, first.TransactionID)
	require.NoError(t, err)

	reloaded, err := f.shareRepo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, reloaded.TransactionID)
}

func TestMarkDelivered(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	delivered, err := f.service.MarkDelivered(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.ShareStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)
	stamp := *delivered.DeliveredAt

	// Reapplying is a no-op: status stays, the timestamp does not move.
	f.advance(time.Hour)
	again, err := f.service.MarkDelivered(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.ShareStatusDelivered, again.Status)
	assert.True(t, again.DeliveredAt.Equal(stamp))
}

func TestMarkDelivered_RevokedShareConflicts(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	_, err := f.service.Revoke(context.Background(), f.sender.ID, f.sender.Email, share.TransactionID)
	require.NoError(t, err)

	_, err = f.service.MarkDelivered(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	assert.ErrorIs(t, err, pkg.ErrInvalidTransition)
}

func TestRecordView_Timeline(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	viewed, err := f.service.RecordView(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.ShareStatusViewed, viewed.Status)
	assert.Equal(t, 1, viewed.ViewCount)
	require.NotNil(t, viewed.FirstViewedAt)
	first := *viewed.FirstViewedAt

	// A later view bumps the counter and last_viewed_at only.
	f.advance(time.Hour)
	viewed, err = f.service.RecordView(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, 2, viewed.ViewCount)
	assert.True(t, viewed.FirstViewedAt.Equal(first))
	assert.True(t, viewed.LastViewedAt.After(first))
}

func TestRecordView_ConcurrentViewsAllCount(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	const viewers = 50
	var wg sync.WaitGroup
	errs := make(chan error, viewers)
	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.RecordView(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	reloaded, err := f.shareRepo.GetByID(context.Background(), share.ID)
	require.NoError(t, err)
	assert.Equal(t, viewers, reloaded.ViewCount, "lost view updates")
}

func TestRecordView_ViewLimit(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, &CreateShareRequest{
		FileID:         f.file.ID.Hex(),
		RecipientEmail: f.recipient.Email,
		ShareType:      "direct",
		MaxViews:       3,
	})

	for i := 0; i < 3; i++ {
		_, err := f.service.RecordView(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
		require.NoError(t, err)
	}

	_, err := f.service.RecordView(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	assert.ErrorIs(t, err, pkg.ErrShareViewLimit)

	reloaded, err := f.shareRepo.GetByID(context.Background(), share.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.ViewCount, "rejected view must not increment the counter")
}

func TestRecordView_Expired(t *testing.T) {
	f := newShareFixture(t)
	expiry := f.now().Add(time.Hour)
	share := f.send(t, &CreateShareRequest{
		FileID:         f.file.ID.Hex(),
		RecipientEmail: f.recipient.Email,
		ShareType:      "direct",
		ExpiresAt:      &expiry,
	})

	f.advance(2 * time.Hour)
	_, err := f.service.RecordView(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	assert.ErrorIs(t, err, pkg.ErrShareExpired)
}

func TestRecordView_DeletedFileBlocksViews(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	won, err := f.fileRepo.SoftDelete(context.Background(), f.file.ID, f.now())
	require.NoError(t, err)
	require.True(t, won)

	_, err = f.service.RecordView(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	assert.ErrorIs(t, err, pkg.ErrShareExpired)

	// The transaction stays in listings for historical integrity.
	sent, _, err := f.service.ListSent(context.Background(), f.sender.ID, listParams())
	require.NoError(t, err)
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].File)
	assert.True(t, sent[0].File.Deleted)
}

func TestRecordView_RequiresViewPermission(t *testing.T) {
	f := newShareFixture(t)

	share := f.send(t, &CreateShareRequest{
		FileID:         f.file.ID.Hex(),
		RecipientEmail: f.recipient.Email,
		ShareType:      "direct",
		Permissions:    &models.SharePermissions{View: false, Download: false},
	})
	assert.False(t, share.Permissions.View)

	_, err := f.service.RecordView(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	reloaded, err := f.shareRepo.GetByID(context.Background(), share.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.ViewCount)
	assert.Equal(t, models.ShareStatusSent, reloaded.Status)
}

func TestRevoke_SenderOnly(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	// The recipient is a party, so they can see it, but not revoke it.
	_, err := f.service.Revoke(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	// An outsider cannot even see it.
	_, err = f.service.Revoke(context.Background(), f.outsider.ID, f.outsider.Email, share.TransactionID)
	assert.ErrorIs(t, err, pkg.ErrShareNotFound)
}

func TestRevoke_Idempotent(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	revoked, err := f.service.Revoke(context.Background(), f.sender.ID, f.sender.Email, share.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.ShareStatusRevoked, revoked.Status)
	require.NotNil(t, revoked.RevokedAt)
	stamp := *revoked.RevokedAt

	f.advance(time.Hour)
	again, err := f.service.Revoke(context.Background(), f.sender.ID, f.sender.Email, share.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.ShareStatusRevoked, again.Status)
	assert.True(t, again.RevokedAt.Equal(stamp))
}

// TestStatus_NeverMovesBackward drives random transition sequences and
// asserts the recorded status only ever advances along the partial order.
func TestStatus_NeverMovesBackward(t *testing.T) {
	f := newShareFixture(t)
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for run := 0; run < 20; run++ {
		share := f.send(t, nil)
		lastRank := models.ShareStatusSent.Rank()

		for step := 0; step < 10; step++ {
			switch rng.Intn(3) {
			case 0:
				f.service.MarkDelivered(ctx, f.recipient.ID, f.recipient.Email, share.TransactionID)
			case 1:
				f.service.RecordView(ctx, f.recipient.ID, f.recipient.Email, share.TransactionID)
			case 2:
				f.service.Revoke(ctx, f.sender.ID, f.sender.Email, share.TransactionID)
			}

			current, err := f.shareRepo.GetByID(ctx, share.ID)
			require.NoError(t, err)
			rank := current.Status.Rank()
			assert.GreaterOrEqual(t, rank, lastRank,
				"run %d step %d: status moved backward to %s", run, step, current.Status)
			lastRank = rank
		}
	}
}

func TestAccessByToken(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, &CreateShareRequest{
		FileID:         f.file.ID.Hex(),
		RecipientEmail: "external@example.com",
		ShareType:      "link",
		Password:       "hunter22",
	})

	// No password: rejected before any state change.
	_, err := f.service.AccessByToken(context.Background(), share.ShareToken, "")
	assert.ErrorIs(t, err, pkg.ErrSharePasswordRequired)

	_, err = f.service.AccessByToken(context.Background(), share.ShareToken, "wrong")
	assert.ErrorIs(t, err, pkg.ErrInvalidSharePassword)

	reloaded, err := f.shareRepo.GetByID(context.Background(), share.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.ViewCount, "failed credential checks must not count views")

	accessed, err := f.service.AccessByToken(context.Background(), share.ShareToken, "hunter22")
	require.NoError(t, err)
	assert.Equal(t, models.ShareStatusViewed, accessed.Status)
	assert.Equal(t, 1, accessed.ViewCount)
}

func TestAccessByToken_UnknownToken(t *testing.T) {
	f := newShareFixture(t)
	f.send(t, nil)

	_, err := f.service.AccessByToken(context.Background(), "nope", "")
	assert.ErrorIs(t, err, pkg.ErrShareNotFound)
}

func TestListing_Isolation(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	sent, _, err := f.service.ListSent(context.Background(), f.sender.ID, listParams())
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, share.TransactionID, sent[0].TransactionID)

	received, _, err := f.service.ListReceived(context.Background(), f.recipient.ID, f.recipient.Email, listParams())
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, share.TransactionID, received[0].TransactionID)

	// No other user's lists contain it.
	otherSent, _, err := f.service.ListSent(context.Background(), f.outsider.ID, listParams())
	require.NoError(t, err)
	assert.Empty(t, otherSent)
	otherReceived, _, err := f.service.ListReceived(context.Background(), f.outsider.ID, f.outsider.Email, listParams())
	require.NoError(t, err)
	assert.Empty(t, otherReceived)
}

func TestListing_ReceivedByEmailBeforeSignup(t *testing.T) {
	f := newShareFixture(t)
	f.send(t, &CreateShareRequest{
		FileID:         f.file.ID.Hex(),
		RecipientEmail: "newcomer@example.com",
		ShareType:      "direct",
	})

	// The recipient registers after the share was created.
	newcomer := f.addUser(t, "newcomer@example.com", "Newcomer")

	received, _, err := f.service.ListReceived(context.Background(), newcomer.ID, newcomer.Email, listParams())
	require.NoError(t, err)
	assert.Len(t, received, 1)
}

func TestGetTransaction_PartyVisibility(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	for _, caller := range []*models.User{f.sender, f.recipient} {
		got, err := f.service.GetTransaction(context.Background(), caller.ID, caller.Email, share.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, share.TransactionID, got.TransactionID)
	}

	_, err := f.service.GetTransaction(context.Background(), f.outsider.ID, f.outsider.Email, share.TransactionID)
	assert.ErrorIs(t, err, pkg.ErrShareNotFound)
}

func TestReceipt_Deterministic(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	first, err := f.service.Receipt(context.Background(), f.sender.ID, f.sender.Email, share.TransactionID)
	require.NoError(t, err)
	second, err := f.service.Receipt(context.Background(), f.recipient.ID, f.recipient.Email, share.TransactionID)
	require.NoError(t, err)

	assert.Equal(t, first.VerificationSignature, second.VerificationSignature)
	assert.Equal(t, first.ReceiptID, second.ReceiptID)
	assert.Equal(t, ReceiptStatusSuccess, first.Status)
	assert.Contains(t, first.ReceiptID, "RCPT-")
}

func TestReceipt_DetectsChecksumTampering(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	receipt, err := f.service.Receipt(context.Background(), f.sender.ID, f.sender.Email, share.TransactionID)
	require.NoError(t, err)
	require.NoError(t, f.service.VerifyReceipt(context.Background(), f.sender.ID, f.sender.Email, receipt))

	f.fileRepo.setChecksum(f.file.ID, "tampered")

	err = f.service.VerifyReceipt(context.Background(), f.sender.ID, f.sender.Email, receipt)
	assert.ErrorIs(t, err, pkg.ErrReceiptMismatch)
}

func TestReceipt_RevokedSurfacesLiteralStatus(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	_, err := f.service.Revoke(context.Background(), f.sender.ID, f.sender.Email, share.TransactionID)
	require.NoError(t, err)

	receipt, err := f.service.Receipt(context.Background(), f.sender.ID, f.sender.Email, share.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, string(models.ShareStatusRevoked), receipt.Status)
}

func TestReceipt_ReadOnly(t *testing.T) {
	f := newShareFixture(t)
	share := f.send(t, nil)

	before, err := f.shareRepo.GetByID(context.Background(), share.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.service.Receipt(context.Background(), f.sender.ID, f.sender.Email, share.TransactionID)
		require.NoError(t, err)
	}

	after, err := f.shareRepo.GetByID(context.Background(), share.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.ViewCount, after.ViewCount)
}

func listParams() *pkg.PaginationParams {
	return &pkg.PaginationParams{Page: 1, Limit: 50, Sort: "created_at", Order: "desc"}
}
