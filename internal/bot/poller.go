package bot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"account_listing_bot/pkg/telegram"
)

// Poller getUpdates 长轮询，把更新交给队列
type Poller struct {
	api     API
	queue   *UpdateQueue
	timeout int
	backoff time.Duration
	log     *zap.Logger
}

func NewPoller(api API, queue *UpdateQueue, timeout time.Duration, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	seconds := int(timeout.Seconds())
	if seconds <= 0 {
		seconds = 30
	}
	return &Poller{api: api, queue: queue, timeout: seconds, backoff: 3 * time.Second, log: log}
}

// Run 轮询直到 ctx 取消；请求失败时退避后重试
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	p.log.Info("开始长轮询", zap.Int("timeout", p.timeout))
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := p.api.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			p.log.Warn("getUpdates 失败", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			p.push(ctx, upd)
		}
	}
}

// push 队列满时等待，轮询模式下不丢更新
func (p *Poller) push(ctx context.Context, upd telegram.Update) {
	for p.queue.Enqueue(upd) != nil {
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}
