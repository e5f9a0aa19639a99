package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"account_listing_bot/internal/model"
)

var (
	// ErrListingNotFound listing 不存在
	ErrListingNotFound = errors.New("listing not found")
	// ErrStatusChanged 条件更新时状态已被别人改掉
	ErrStatusChanged = errors.New("listing status changed")
)

// ==================== 仓储接口 ====================

// ListingRepository listing 仓储接口
type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	GetByID(ctx context.Context, id int64) (*model.Listing, error)
	UpdateData(ctx context.Context, id int64, data []byte, receiptRefs []string) error
	UpdateStatus(ctx context.Context, id int64, from, to string, reviewer int64) error
	List(ctx context.Context, filter ListingFilter) ([]model.Listing, int64, error)
	ListByUser(ctx context.Context, userID int64, statuses ...string) ([]model.Listing, error)
	Delete(ctx context.Context, id int64) error

	// 过期清理相关
	FindExpired(ctx context.Context, before time.Time) ([]*model.Listing, error)
	MarkExpired(ctx context.Context, id int64) error
}

// ==================== 过滤条件 ====================

// ListingFilter listing 过滤条件
type ListingFilter struct {
	UserID   int64
	Status   string
	Page     int
	PageSize int
}

// ==================== 实现 ====================

type listingRepo struct {
	db *gorm.DB
}

// NewListingRepository 创建 listing 仓储
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepo{db: db}
}

func (r *listingRepo) Create(ctx context.Context, listing *model.Listing) error {
	if listing.Status == "" {
		listing.Status = model.ListingStatusPending
	}
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepo) GetByID(ctx context.Context, id int64) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.WithContext(ctx).First(&listing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// UpdateData 编辑后重新进入待审核
func (r *listingRepo) UpdateData(ctx context.Context, id int64, data []byte, receiptRefs []string) error {
	res := r.db.WithContext(ctx).Model(&model.Listing{}).Where("id = ?", id).Updates(map[string]interface{}{
		"data":         datatypes.JSON(data),
		"receipt_refs": model.StringSlice(receiptRefs),
		"status":       model.ListingStatusPending,
		"reviewed_by":  0,
		"reviewed_at":  nil,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}
	return nil
}

// UpdateStatus 只在当前状态为 from 时更新，并发审核只有一方成功
func (r *listingRepo) UpdateStatus(ctx context.Context, id int64, from, to string, reviewer int64) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.Listing{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"reviewed_by": reviewer,
			"reviewed_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Listing{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}
	return fmt.Errorf("%w: %d", ErrStatusChanged, id)
}

func (r *listingRepo) List(ctx context.Context, filter ListingFilter) ([]model.Listing, int64, error) {
	var listings []model.Listing
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Listing{})

	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.Order("created_at DESC").Limit(filter.PageSize).Offset(offset).Find(&listings).Error; err != nil {
		return nil, 0, err
	}

	return listings, total, nil
}

// ListByUser 用户自己的 listing，statuses 为空时返回全部
func (r *listingRepo) ListByUser(ctx context.Context, userID int64, statuses ...string) ([]model.Listing, error) {
	var listings []model.Listing
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Order("created_at DESC").Find(&listings).Error
	return listings, err
}

// Delete 物理删除（投递失败时回滚刚创建的 listing）
func (r *listingRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&model.Listing{}, id).Error
}

// FindExpired 查找已过期但仍在上架的 listing
func (r *listingRepo) FindExpired(ctx context.Context, before time.Time) ([]*model.Listing, error) {
	var listings []*model.Listing
	err := r.db.WithContext(ctx).
		Where("expire_at < ? AND status = ?", before, model.ListingStatusActive).
		Find(&listings).Error
	return listings, err
}

// MarkExpired 标记为过期
func (r *listingRepo) MarkExpired(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ?", id).
		Update("status", model.ListingStatusExpired).Error
}
