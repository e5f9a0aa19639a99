package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"account_listing_bot/internal/service"
	"account_listing_bot/pkg/telegram"
)

// captionLimit Bot API 图片说明的长度上限
const captionLimit = 1024

// TelegramDeliverer 通过 Bot API 投递消息，不重试
type TelegramDeliverer struct {
	api API
	log *zap.Logger
}

func NewTelegramDeliverer(api API, log *zap.Logger) *TelegramDeliverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &TelegramDeliverer{api: api, log: log}
}

var _ service.Deliverer = (*TelegramDeliverer)(nil)

// Deliver 有图片时第一张带说明和按钮，其余图片单独发送
// 说明超长时文字和按钮改为单独一条消息
func (d *TelegramDeliverer) Deliver(ctx context.Context, recipient int64, content service.Content, controls service.Controls) error {
	markup := replyMarkup(controls)
	if len(content.Photos) == 0 {
		_, err := d.api.SendMessage(ctx, telegram.SendMessageParams{ChatID: recipient, Text: content.Text, ReplyMarkup: markup})
		if err != nil {
			return fmt.Errorf("发送消息失败: %w", err)
		}
		return nil
	}

	fitsCaption := len([]rune(content.Text)) <= captionLimit
	for i, photo := range content.Photos {
		p := telegram.SendPhotoParams{ChatID: recipient, Photo: photo}
		if i == 0 && fitsCaption {
			p.Caption = content.Text
			p.ReplyMarkup = markup
		}
		if _, err := d.api.SendPhoto(ctx, p); err != nil {
			return fmt.Errorf("发送第 %d 张图片失败: %w", i+1, err)
		}
	}

	if !fitsCaption {
		if _, err := d.api.SendMessage(ctx, telegram.SendMessageParams{ChatID: recipient, Text: content.Text, ReplyMarkup: markup}); err != nil {
			return fmt.Errorf("发送消息失败: %w", err)
		}
	}
	d.log.Debug("delivered", zap.Int64("recipient", recipient), zap.Int("photos", len(content.Photos)))
	return nil
}
