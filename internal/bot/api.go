// Package bot Telegram 传输层：更新分发、投递、频道成员检查
package bot

import (
	"context"

	"account_listing_bot/internal/service"
	"account_listing_bot/pkg/telegram"
)

// API bot 依赖的 Bot API 子集，由 *telegram.Client 实现
type API interface {
	SendMessage(ctx context.Context, p telegram.SendMessageParams) (*telegram.Message, error)
	SendPhoto(ctx context.Context, p telegram.SendPhotoParams) (*telegram.Message, error)
	EditMessageText(ctx context.Context, p telegram.EditMessageTextParams) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
	GetChatMember(ctx context.Context, chatID string, userID int64) (*telegram.ChatMember, error)
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
}

var _ API = (*telegram.Client)(nil)

// Engine 会话引擎，由 *service.FormService 实现
type Engine interface {
	HandleText(ctx context.Context, u service.User, text string) []service.Reply
	HandlePhoto(ctx context.Context, u service.User, fileID string) []service.Reply
	HandleDocument(ctx context.Context, u service.User) []service.Reply
	HandleCallback(ctx context.Context, u service.User, data string) []service.Reply
}

var _ Engine = (*service.FormService)(nil)

// ==================== 控件渲染 ====================

func inlineMarkup(rows [][]service.Button) *telegram.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: make([][]telegram.InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		buttons := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telegram.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data, URL: b.URL})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

func mainMenuMarkup() *telegram.ReplyKeyboardMarkup {
	rows := service.MainMenuRows
	markup := &telegram.ReplyKeyboardMarkup{ResizeKeyboard: true, Keyboard: make([][]telegram.KeyboardButton, 0, len(rows))}
	for _, row := range rows {
		buttons := make([]telegram.KeyboardButton, 0, len(row))
		for _, text := range row {
			buttons = append(buttons, telegram.KeyboardButton{Text: text})
		}
		markup.Keyboard = append(markup.Keyboard, buttons)
	}
	return markup
}

// replyMarkup 内联键盘优先；否则按需附带主菜单
// 返回 interface{} 时要避免带类型的 nil
func replyMarkup(c service.Controls) interface{} {
	if m := inlineMarkup(c.Inline); m != nil {
		return m
	}
	if c.MainMenu {
		return mainMenuMarkup()
	}
	return nil
}

func toUser(u telegram.User) service.User {
	return service.User{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}
