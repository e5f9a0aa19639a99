package dto

import (
	"time"

	"account_listing_bot/internal/model"
)

// ================== Listing DTO ==================

// ListingListReq 管理 API 列表请求
type ListingListReq struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Status   string `form:"status"`
	UserID   int64  `form:"user_id"`
}

// ListingResp listing 响应，表单快照原样返回
type ListingResp struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Status      string     `json:"status"`
	Form        model.Form `json:"form"`
	Photos      []string   `json:"photos"`
	ExpireAt    time.Time  `json:"expire_at"`
	ReviewedBy  int64      `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PlatformStr string     `json:"platform,omitempty"`
}

// ListingListResp 分页列表
type ListingListResp struct {
	List     []ListingResp `json:"list"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ToListingResp 表单解析失败时 Form 为空
func ToListingResp(l *model.Listing) ListingResp {
	resp := ListingResp{
		ID:         l.ID,
		UserID:     l.UserID,
		Status:     l.Status,
		Photos:     []string(l.ReceiptRefs),
		ExpireAt:   l.ExpireAt,
		ReviewedBy: l.ReviewedBy,
		ReviewedAt: l.ReviewedAt,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
	if f, err := l.Form(); err == nil {
		resp.Form = f
		resp.PlatformStr = f.String(model.FieldPlatform)
	}
	return resp
}
