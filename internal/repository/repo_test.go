package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"account_listing_bot/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&model.Listing{}, &model.BotUser{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newListing(userID int64, status string, expireAt time.Time) *model.Listing {
	return &model.Listing{
		UserID:   userID,
		Status:   status,
		ExpireAt: expireAt,
		Data:     []byte(`{"price":"100"}`),
	}
}

// ==================== Listing ====================

func TestListingRepo_CreateAndGet(t *testing.T) {
	repo := NewListingRepository(setupTestDB(t))
	ctx := context.Background()

	listing := &model.Listing{UserID: 7, Data: []byte(`{"price":"100","team_photos":["a","b"]}`), ReceiptRefs: model.StringSlice{"a", "b"}}
	require.NoError(t, repo.Create(ctx, listing))
	assert.NotZero(t, listing.ID)

	got, err := repo.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusPending, got.Status)
	assert.Equal(t, model.StringSlice{"a", "b"}, got.ReceiptRefs)

	f, err := got.Form()
	require.NoError(t, err)
	assert.Equal(t, "100", f.String(model.FieldPrice))
	assert.Equal(t, []string{"a", "b"}, f.Photos())
}

func TestListingRepo_NotFound(t *testing.T) {
	repo := NewListingRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 404)
	assert.True(t, errors.Is(err, ErrListingNotFound))

	assert.ErrorIs(t, repo.UpdateStatus(ctx, 404, model.ListingStatusPending, model.ListingStatusActive, 1), ErrListingNotFound)
	assert.ErrorIs(t, repo.UpdateData(ctx, 404, []byte(`{}`), nil), ErrListingNotFound)
}

func TestListingRepo_UpdateStatusAndData(t *testing.T) {
	repo := NewListingRepository(setupTestDB(t))
	ctx := context.Background()

	listing := newListing(1, "", time.Now().Add(time.Hour))
	require.NoError(t, repo.Create(ctx, listing))

	require.NoError(t, repo.UpdateStatus(ctx, listing.ID, model.ListingStatusPending, model.ListingStatusActive, 99))
	got, _ := repo.GetByID(ctx, listing.ID)
	assert.Equal(t, model.ListingStatusActive, got.Status)
	assert.Equal(t, int64(99), got.ReviewedBy)
	assert.NotNil(t, got.ReviewedAt)

	err := repo.UpdateStatus(ctx, listing.ID, model.ListingStatusPending, model.ListingStatusRejected, 98)
	assert.ErrorIs(t, err, ErrStatusChanged, "状态已变更时不覆盖")
	got, _ = repo.GetByID(ctx, listing.ID)
	assert.Equal(t, model.ListingStatusActive, got.Status)
	assert.Equal(t, int64(99), got.ReviewedBy)

	require.NoError(t, repo.UpdateData(ctx, listing.ID, []byte(`{"price":"300"}`), []string{"p"}))
	got, _ = repo.GetByID(ctx, listing.ID)
	assert.Equal(t, model.ListingStatusPending, got.Status, "编辑后重新审核")
	assert.Nil(t, got.ReviewedAt)
	f, _ := got.Form()
	assert.Equal(t, "300", f.String(model.FieldPrice))
}

func TestListingRepo_ListAndFilter(t *testing.T) {
	repo := NewListingRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newListing(1, model.ListingStatusPending, time.Now())))
	}
	require.NoError(t, repo.Create(ctx, newListing(1, model.ListingStatusRejected, time.Now())))
	require.NoError(t, repo.Create(ctx, newListing(2, model.ListingStatusActive, time.Now())))

	listings, total, err := repo.List(ctx, ListingFilter{UserID: 1, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Len(t, listings, 2)

	_, total, err = repo.List(ctx, ListingFilter{Status: model.ListingStatusActive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	mine, err := repo.ListByUser(ctx, 1, model.ListingStatusPending, model.ListingStatusActive)
	require.NoError(t, err)
	assert.Len(t, mine, 5)

	all, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestListingRepo_Expiry(t *testing.T) {
	repo := NewListingRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now()

	past := newListing(1, model.ListingStatusActive, now.Add(-time.Hour))
	future := newListing(1, model.ListingStatusActive, now.Add(time.Hour))
	pendingPast := newListing(1, model.ListingStatusPending, now.Add(-time.Hour))
	for _, l := range []*model.Listing{past, future, pendingPast} {
		require.NoError(t, repo.Create(ctx, l))
	}

	expired, err := repo.FindExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, past.ID, expired[0].ID)

	require.NoError(t, repo.MarkExpired(ctx, past.ID))
	got, _ := repo.GetByID(ctx, past.ID)
	assert.Equal(t, model.ListingStatusExpired, got.Status)
}

func TestListingRepo_Delete(t *testing.T) {
	repo := NewListingRepository(setupTestDB(t))
	ctx := context.Background()

	listing := newListing(1, "", time.Now())
	require.NoError(t, repo.Create(ctx, listing))
	require.NoError(t, repo.Delete(ctx, listing.ID))

	_, err := repo.GetByID(ctx, listing.ID)
	assert.ErrorIs(t, err, ErrListingNotFound)
}

// ==================== User ====================

func TestUserRepo_FreeQuota(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	used, err := repo.IsFreeUsed(ctx, 5)
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, repo.Ensure(ctx, 5))
	require.NoError(t, repo.Ensure(ctx, 5))

	require.NoError(t, repo.MarkFreeUsed(ctx, 5))
	used, err = repo.IsFreeUsed(ctx, 5)
	require.NoError(t, err)
	assert.True(t, used)

	require.NoError(t, repo.MarkFreeUsed(ctx, 6))
	used, _ = repo.IsFreeUsed(ctx, 6)
	assert.True(t, used)
}
