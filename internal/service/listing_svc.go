package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"account_listing_bot/internal/model"
	"account_listing_bot/internal/repository"
)

// ListingConfig listing 服务配置
type ListingConfig struct {
	AdminUserID int64
	Privileged  []int64
	TTL         time.Duration
}

// ListingService 提交、审核、编辑与过期
type ListingService struct {
	listings   repository.ListingRepository
	quota      QuotaStore
	deliverer  Deliverer
	adminID    int64
	privileged map[int64]bool
	ttl        time.Duration
	log        *zap.Logger
	now        func() time.Time
}

func NewListingService(listings repository.ListingRepository, quota QuotaStore, deliverer Deliverer, cfg ListingConfig, log *zap.Logger) *ListingService {
	if log == nil {
		log = zap.NewNop()
	}
	privileged := make(map[int64]bool, len(cfg.Privileged))
	for _, id := range cfg.Privileged {
		privileged[id] = true
	}
	return &ListingService{
		listings:   listings,
		quota:      quota,
		deliverer:  deliverer,
		adminID:    cfg.AdminUserID,
		privileged: privileged,
		ttl:        cfg.TTL,
		log:        log,
		now:        time.Now,
	}
}

// IsAdmin 审核人身份
func (s *ListingService) IsAdmin(userID int64) bool {
	return s.adminID != 0 && userID == s.adminID
}

// IsPrivileged 免配额身份
func (s *ListingService) IsPrivileged(userID int64) bool {
	return s.privileged[userID]
}

// CheckQuota 非特权用户已用过免费额度时返回 ErrQuotaUsed
func (s *ListingService) CheckQuota(ctx context.Context, userID int64) error {
	if s.IsPrivileged(userID) {
		return nil
	}
	used, err := s.quota.IsFreeUsed(ctx, userID)
	if err != nil {
		return fmt.Errorf("查询免费额度失败: %w", err)
	}
	if used {
		return ErrQuotaUsed
	}
	return nil
}

// ==================== 提交 ====================

// Submit 投递给管理员审核并持久化
// 投递失败时不留下任何记录，调用方保留会话供重试
func (s *ListingService) Submit(ctx context.Context, u User, f model.Form, pendingID *int64) (*model.Listing, error) {
	if len(f) == 0 {
		return nil, ErrEmptyForm
	}
	data, err := f.Marshal()
	if err != nil {
		return nil, fmt.Errorf("序列化表单失败: %w", err)
	}

	if pendingID != nil {
		return s.resubmit(ctx, u, f, data, *pendingID)
	}

	if err := s.CheckQuota(ctx, u.ID); err != nil {
		return nil, err
	}

	listing := &model.Listing{
		UserID:      u.ID,
		ExpireAt:    s.now().Add(s.ttl),
		Data:        data,
		ReceiptRefs: model.StringSlice(f.Photos()),
		Status:      model.ListingStatusPending,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("保存 listing 失败: %w", err)
	}

	if err := s.deliverReview(ctx, listing.ID, u, f, false); err != nil {
		if delErr := s.listings.Delete(ctx, listing.ID); delErr != nil {
			s.log.Error("回滚 listing 失败", zap.Int64("listing_id", listing.ID), zap.Error(delErr))
		}
		return nil, err
	}

	if !s.IsPrivileged(u.ID) {
		if err := s.quota.MarkFreeUsed(ctx, u.ID); err != nil {
			s.log.Error("标记免费额度失败", zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}

	s.log.Info("listing submitted", zap.Int64("user_id", u.ID), zap.Int64("listing_id", listing.ID))
	return listing, nil
}

// resubmit 编辑已有 listing，不消耗额度
func (s *ListingService) resubmit(ctx context.Context, u User, f model.Form, data []byte, id int64) (*model.Listing, error) {
	listing, err := s.ownedEditable(ctx, u.ID, id)
	if err != nil {
		return nil, err
	}

	if err := s.deliverReview(ctx, id, u, f, true); err != nil {
		return nil, err
	}
	if err := s.listings.UpdateData(ctx, id, data, f.Photos()); err != nil {
		return nil, fmt.Errorf("更新 listing 失败: %w", err)
	}

	listing.Data = data
	listing.ReceiptRefs = f.Photos()
	listing.Status = model.ListingStatusPending
	s.log.Info("listing edited", zap.Int64("user_id", u.ID), zap.Int64("listing_id", id))
	return listing, nil
}

func (s *ListingService) deliverReview(ctx context.Context, id int64, u User, f model.Form, editing bool) error {
	content := Content{Text: reviewPayload(id, u, f, editing), Photos: f.Photos()}
	if err := s.deliverer.Deliver(ctx, s.adminID, content, Controls{Inline: reviewMenu(id)}); err != nil {
		s.log.Error("投递审核内容失败", zap.Int64("user_id", u.ID), zap.Int64("listing_id", id), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// ==================== 审核 ====================

// Review 审核待审核的 listing，并通知提交人（通知失败只记录日志）
func (s *ListingService) Review(ctx context.Context, id int64, approve bool, reviewer int64) (*model.Listing, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := listing.CanReview(); err != nil {
		return nil, err
	}

	status, text := model.ListingStatusRejected, textRejected
	if approve {
		status, text = model.ListingStatusActive, textApproved
	}
	if err := s.listings.UpdateStatus(ctx, id, model.ListingStatusPending, status, reviewer); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, model.ErrNotReviewable
		}
		return nil, fmt.Errorf("更新状态失败: %w", err)
	}
	listing.Status = status
	listing.ReviewedBy = reviewer

	if err := s.deliverer.Deliver(ctx, listing.UserID, Content{Text: fmt.Sprintf(text, id)}, Controls{}); err != nil {
		s.log.Warn("通知用户审核结果失败", zap.Int64("listing_id", id), zap.Error(err))
	}
	s.log.Info("listing reviewed", zap.Int64("listing_id", id), zap.String("status", status), zap.Int64("reviewer", reviewer))
	return listing, nil
}

// ==================== 查询与编辑 ====================

// MyListings 用户待审核和已上架的 listing
func (s *ListingService) MyListings(ctx context.Context, userID int64) ([]model.Listing, error) {
	return s.listings.ListByUser(ctx, userID, model.ListingStatusPending, model.ListingStatusActive)
}

// LoadForEdit 只有本人且可编辑的 listing 才能加载
func (s *ListingService) LoadForEdit(ctx context.Context, userID, id int64) (model.Form, error) {
	listing, err := s.ownedEditable(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return listing.Form()
}

func (s *ListingService) ownedEditable(ctx context.Context, userID, id int64) (*model.Listing, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, ErrNotEditable
		}
		return nil, err
	}
	if listing.UserID != userID || !listing.Editable() {
		return nil, ErrNotEditable
	}
	return listing, nil
}

// List 管理 API 列表
func (s *ListingService) List(ctx context.Context, filter repository.ListingFilter) ([]model.Listing, int64, error) {
	return s.listings.List(ctx, filter)
}

// Get 管理 API 详情
func (s *ListingService) Get(ctx context.Context, id int64) (*model.Listing, error) {
	return s.listings.GetByID(ctx, id)
}

// ==================== 过期 ====================

// ExpireDue 把过期的上架 listing 标记为 expired，返回处理数量
func (s *ListingService) ExpireDue(ctx context.Context) (int, error) {
	expired, err := s.listings.FindExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("查询过期 listing 失败: %w", err)
	}

	count := 0
	for _, l := range expired {
		if err := s.listings.MarkExpired(ctx, l.ID); err != nil {
			s.log.Error("标记过期失败", zap.Int64("listing_id", l.ID), zap.Error(err))
			continue
		}
		count++
	}
	return count, nil
}
