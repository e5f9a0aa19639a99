package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== 操作冷却 ====================

// defaultRetention 记录保留时长，需大于任何冷却间隔
const defaultRetention = time.Hour

// Cooldown 记录每个 (用户或客户端, 操作) 最近一次执行的时间
// 超过 retention 没再触发的记录在写入时顺带清理
type Cooldown struct {
	mu        sync.Mutex
	last      map[string]time.Time
	retention time.Duration
	nextSweep time.Time
	now       func() time.Time
}

func NewCooldown() *Cooldown {
	return &Cooldown{
		last:      make(map[string]time.Time),
		retention: defaultRetention,
		now:       time.Now,
	}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration // 剩余冷却时间
}

// Take 冷却结束则放行并立即计入冷却（估价、HTTP 审核）
func (c *Cooldown) Take(key string, interval time.Duration) CheckResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if d := c.remaining(key, interval, now); d > 0 {
		return CheckResult{RetryAfter: d}
	}
	c.record(key, now)
	return CheckResult{Allowed: true}
}

// Peek 只检查不计入；成功后由 Mark 计入（提交失败不占冷却）
func (c *Cooldown) Peek(key string, interval time.Duration) CheckResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d := c.remaining(key, interval, c.now()); d > 0 {
		return CheckResult{RetryAfter: d}
	}
	return CheckResult{Allowed: true}
}

// Mark 操作成功后计入冷却
func (c *Cooldown) Mark(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(key, c.now())
}

func (c *Cooldown) remaining(key string, interval time.Duration, now time.Time) time.Duration {
	last, ok := c.last[key]
	if !ok {
		return 0
	}
	if d := interval - now.Sub(last); d > 0 {
		return d
	}
	return 0
}

// record 调用方持有锁
func (c *Cooldown) record(key string, now time.Time) {
	c.last[key] = now
	if now.Before(c.nextSweep) {
		return
	}
	for k, t := range c.last {
		if now.Sub(t) > c.retention {
			delete(c.last, k)
		}
	}
	c.nextSweep = now.Add(c.retention)
}

// ==================== Key 生成工具 ====================

// Action 用户操作类型
type Action string

const (
	ActionEstimate Action = "estimate"
	ActionSubmit   Action = "submit"
)

// UserActionKey 用户级操作 Key
func UserActionKey(userID int64, action Action) string {
	return fmt.Sprintf("user:%d:%s", userID, action)
}

// ClientKey HTTP 客户端级 Key
func ClientKey(ip, scope string) string {
	return fmt.Sprintf("client:%s:%s", ip, scope)
}

// RetryMessage 冷却提示
func RetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	if seconds < 60 {
		return fmt.Sprintf("⏳ Please wait %d seconds and try again.", seconds)
	}
	return fmt.Sprintf("⏳ Please wait %d minutes %d seconds and try again.", seconds/60, seconds%60)
}
