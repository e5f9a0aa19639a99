package bot

import (
	"context"

	"go.uber.org/zap"

	"account_listing_bot/internal/service"
	"account_listing_bot/pkg/telegram"
)

// Dispatcher 把一个 Update 交给引擎并发送回复
type Dispatcher struct {
	api    API
	engine Engine
	log    *zap.Logger
}

func NewDispatcher(api API, engine Engine, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{api: api, engine: engine, log: log}
}

// Handle 处理单个更新；发送失败只记录日志
func (d *Dispatcher) Handle(ctx context.Context, upd telegram.Update) {
	switch {
	case upd.CallbackQuery != nil:
		d.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		d.handleMessage(ctx, upd.Message)
	default:
		d.log.Debug("忽略的更新类型", zap.Int64("update_id", upd.UpdateID))
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.From.IsBot || msg.Chat.Type != "private" {
		return
	}
	u := toUser(*msg.From)

	var replies []service.Reply
	switch {
	case len(msg.Photo) > 0:
		replies = d.engine.HandlePhoto(ctx, u, msg.LargestPhoto())
	case msg.Document != nil:
		replies = d.engine.HandleDocument(ctx, u)
	case msg.Text != "":
		replies = d.engine.HandleText(ctx, u, msg.Text)
	default:
		return
	}
	d.send(ctx, msg.Chat.ID, replies)
}

// handleCallback 先结束按钮加载状态
// 第一条回复编辑按钮所在消息；带主菜单的回复无法编辑进去，改为新发
func (d *Dispatcher) handleCallback(ctx context.Context, q *telegram.CallbackQuery) {
	if err := d.api.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
		d.log.Warn("answerCallbackQuery 失败", zap.String("callback_id", q.ID), zap.Error(err))
	}
	replies := d.engine.HandleCallback(ctx, toUser(q.From), q.Data)
	if len(replies) == 0 {
		return
	}

	chatID := q.From.ID
	if q.Message == nil {
		d.send(ctx, chatID, replies)
		return
	}
	chatID = q.Message.Chat.ID

	first := replies[0]
	if first.Controls.MainMenu {
		d.send(ctx, chatID, replies)
		return
	}
	err := d.api.EditMessageText(ctx, telegram.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   q.Message.MessageID,
		Text:        first.Text,
		ReplyMarkup: inlineMarkup(first.Controls.Inline),
	})
	if err != nil {
		// 图片消息等无法编辑，退回新发
		d.log.Debug("编辑消息失败，改为发送", zap.Int64("chat_id", chatID), zap.Error(err))
		d.send(ctx, chatID, replies[:1])
	}
	d.send(ctx, chatID, replies[1:])
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, replies []service.Reply) {
	for _, r := range replies {
		if r.Text == "" {
			continue
		}
		_, err := d.api.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:      chatID,
			Text:        r.Text,
			ReplyMarkup: replyMarkup(r.Controls),
		})
		if err != nil {
			d.log.Error("发送消息失败", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}
