package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"account_listing_bot/internal/model"
)

// ==================== UserRepository 用户仓库 ====================

// UserRepository 机器人用户与免费额度
type UserRepository interface {
	Ensure(ctx context.Context, userID int64) error
	IsFreeUsed(ctx context.Context, userID int64) (bool, error)
	MarkFreeUsed(ctx context.Context, userID int64) error
}

// ==================== 实现 ====================

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Ensure 首次见到用户时登记，已存在则不变
func (r *userRepository) Ensure(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.BotUser{UserID: userID}).Error
}

// IsFreeUsed 未登记的用户视为未使用
func (r *userRepository) IsFreeUsed(ctx context.Context, userID int64) (bool, error) {
	var user model.BotUser
	err := r.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.FreeUsed, nil
}

// MarkFreeUsed 记录免费额度已使用
func (r *userRepository) MarkFreeUsed(ctx context.Context, userID int64) error {
	if err := r.Ensure(ctx, userID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.BotUser{}).
		Where("user_id = ?", userID).
		Update("free_used", true).Error
}
