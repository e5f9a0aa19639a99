package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ==================== 错误 ====================

var (
	ErrDeliveryFailed = errors.New("delivery failed")
	ErrQuotaUsed      = errors.New("free quota already used")
	ErrEmptyForm      = errors.New("form is empty")
	ErrNotEditable    = errors.New("listing is not editable")
)

// ==================== 交互模型 ====================

// User 事件发起人
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Contact 联系方式：@username，其次姓名，最后退回到数字 ID
func (u User) Contact() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return fmt.Sprintf("UserID: %d", u.ID)
}

// Button 内联按钮，Data 与 URL 二选一
type Button struct {
	Text string
	Data string
	URL  string
}

// Controls 消息附带的控件
type Controls struct {
	Inline   [][]Button
	MainMenu bool // 附带主菜单回复键盘
}

// Content 投递内容；有图片时第一张带文字和控件
type Content struct {
	Text   string
	Photos []string
}

// Reply 引擎对一次事件的回复
type Reply struct {
	Text     string
	Controls Controls
}

// ==================== 外部协作者 ====================

// MembershipChecker 频道成员检查，是进入表单流程的前置条件
type MembershipChecker interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
}

// Deliverer 消息投递，失败只返回错误，不重试
type Deliverer interface {
	Deliver(ctx context.Context, recipient int64, content Content, controls Controls) error
}

// QuotaStore 免费额度
type QuotaStore interface {
	IsFreeUsed(ctx context.Context, userID int64) (bool, error)
	MarkFreeUsed(ctx context.Context, userID int64) error
}
