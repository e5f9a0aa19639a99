package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"account_listing_bot/internal/service"
	"account_listing_bot/pkg/utils"
)

// ChannelMembership 通过 getChatMember 检查频道成员，只缓存肯定结果
type ChannelMembership struct {
	api     API
	channel string
	cache   *utils.TTLCache[bool]
}

func NewChannelMembership(api API, channel string, ttl time.Duration) *ChannelMembership {
	return &ChannelMembership{api: api, channel: channel, cache: utils.NewTTLCache[bool](ttl)}
}

var _ service.MembershipChecker = (*ChannelMembership)(nil)

// IsMember 未配置频道时视为全部通过
func (m *ChannelMembership) IsMember(ctx context.Context, userID int64) (bool, error) {
	if m.channel == "" {
		return true, nil
	}
	key := strconv.FormatInt(userID, 10)
	if ok, hit := m.cache.Get(key); hit {
		return ok, nil
	}

	member, err := m.api.GetChatMember(ctx, m.channel, userID)
	if err != nil {
		return false, fmt.Errorf("查询频道成员失败: %w", err)
	}
	ok := member.IsMember()
	if ok {
		m.cache.Set(key, true)
	}
	return ok, nil
}
