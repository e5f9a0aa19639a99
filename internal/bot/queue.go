package bot

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"account_listing_bot/pkg/telegram"
)

// ErrQueueFull 队列已满，webhook 返回 503 让 Telegram 重试
var ErrQueueFull = errors.New("update queue is full")

// Handler 单个更新的处理函数
type Handler interface {
	Handle(ctx context.Context, upd telegram.Update)
}

// UpdateQueue 单消费者队列，保证所有更新按到达顺序串行处理
type UpdateQueue struct {
	updates chan telegram.Update
	handler Handler
	log     *zap.Logger

	running bool
	mutex   sync.Mutex
}

func NewUpdateQueue(size int, handler Handler, log *zap.Logger) *UpdateQueue {
	if size <= 0 {
		size = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UpdateQueue{updates: make(chan telegram.Update, size), handler: handler, log: log}
}

// Enqueue 非阻塞入队
func (q *UpdateQueue) Enqueue(upd telegram.Update) error {
	select {
	case q.updates <- upd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run 消费直到 ctx 取消；重复调用直接返回
func (q *UpdateQueue) Run(ctx context.Context) error {
	q.mutex.Lock()
	if q.running {
		q.mutex.Unlock()
		return nil
	}
	q.running = true
	q.mutex.Unlock()

	defer func() {
		q.mutex.Lock()
		q.running = false
		q.mutex.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd := <-q.updates:
			q.handle(ctx, upd)
		}
	}
}

// handle 单个更新的 panic 不影响后续更新
func (q *UpdateQueue) handle(ctx context.Context, upd telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("处理更新 panic", zap.Int64("update_id", upd.UpdateID), zap.Any("panic", r))
		}
	}()
	q.handler.Handle(ctx, upd)
}

func (q *UpdateQueue) Len() int {
	return len(q.updates)
}
