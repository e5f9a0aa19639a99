package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// ==================== 状态常量 ====================

const (
	ListingStatusPending  = "pending"
	ListingStatusActive   = "active"
	ListingStatusRejected = "rejected"
	ListingStatusExpired  = "expired"
)

// ErrNotReviewable 只有待审核的 listing 可以审核
var ErrNotReviewable = errors.New("当前状态不允许审核")

// StringSlice 字符串切片（JSON 存储）
type StringSlice = datatypes.JSONSlice[string]

// ==================== 数据库模型 ====================

// Listing 提交完成的账号出售信息
type Listing struct {
	BaseModel
	UserID      int64          `gorm:"index;not null;comment:提交用户" json:"user_id"`
	ExpireAt    time.Time      `gorm:"index;comment:过期时间" json:"expire_at"`
	Data        datatypes.JSON `gorm:"comment:表单快照" json:"data"`
	ReceiptRefs StringSlice    `gorm:"comment:截图/凭证引用" json:"receipt_refs"`
	Status      string         `gorm:"size:16;index;default:pending;comment:状态" json:"status"`
	ReviewedBy  int64          `gorm:"comment:审核人" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time     `gorm:"comment:审核时间" json:"reviewed_at,omitempty"`
}

func (*Listing) TableName() string {
	return "listings"
}

// Form 还原表单快照
func (l *Listing) Form() (Form, error) {
	if len(l.Data) == 0 {
		return Form{}, nil
	}
	return ParseForm(l.Data)
}

// Editable 只有待审核或已上架的可编辑
func (l *Listing) Editable() bool {
	return l.Status == ListingStatusPending || l.Status == ListingStatusActive
}

// CanReview 检查是否可以审核
func (l *Listing) CanReview() error {
	if l.Status != ListingStatusPending {
		return ErrNotReviewable
	}
	return nil
}

// BotUser 机器人用户，记录免费额度
type BotUser struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	FreeUsed  bool      `gorm:"default:false;comment:是否已用免费额度" json:"free_used"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (*BotUser) TableName() string {
	return "bot_users"
}
