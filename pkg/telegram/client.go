// Package telegram 基于 resty 的 Telegram Bot API 客户端
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client Bot API 客户端，失败直接返回错误，不做重试
type Client struct {
	http  *resty.Client
	token string
	log   *zap.Logger
}

// apiResponse Bot API 统一响应
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// NewClient baseURL 例如 https://api.telegram.org
func NewClient(token, baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/bot"+token).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &Client{http: rc, token: token, log: log}
}

// call 调用一个方法并解析 result
func (c *Client) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/" + method)
	if err != nil {
		return fmt.Errorf("telegram %s 请求失败: %w", method, c.redact(err))
	}

	var env apiResponse
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("telegram %s 响应解析失败 (Status %d): %w", method, resp.StatusCode(), err)
	}
	if !env.OK {
		c.log.Warn("telegram api error",
			zap.String("method", method),
			zap.Int("code", env.ErrorCode),
			zap.String("description", env.Description))
		return &APIError{Code: env.ErrorCode, Description: env.Description}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("telegram %s result 解析失败: %w", method, err)
	}
	return nil
}

// redact token 在 URL 路径里，传输错误的文本会带出完整 URL
func (c *Client) redact(err error) error {
	var uerr *url.Error
	if c.token != "" && errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, c.token, "<token>")
	}
	return err
}

// ==================== 发送 ====================

// SendMessageParams ChatID 为 int64 或 "@channel"
type SendMessageParams struct {
	ChatID      interface{} `json:"chat_id"`
	Text        string      `json:"text"`
	ReplyMarkup interface{} `json:"reply_markup,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, p SendMessageParams) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendMessage", p, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendPhotoParams Photo 为已上传图片的 file_id
type SendPhotoParams struct {
	ChatID      interface{} `json:"chat_id"`
	Photo       string      `json:"photo"`
	Caption     string      `json:"caption,omitempty"`
	ReplyMarkup interface{} `json:"reply_markup,omitempty"`
}

func (c *Client) SendPhoto(ctx context.Context, p SendPhotoParams) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendPhoto", p, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

type EditMessageTextParams struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	Text        string                `json:"text"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageText 编辑按钮所在的消息
func (c *Client) EditMessageText(ctx context.Context, p EditMessageTextParams) error {
	return c.call(ctx, "editMessageText", p, nil)
}

// AnswerCallbackQuery 结束按钮的加载状态
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]interface{}{
		"callback_query_id": callbackID,
		"text":              text,
	}, nil)
}

// ==================== 查询 ====================

// GetChatMember chatID 为 "@channel" 或数字 ID 字符串
func (c *Client) GetChatMember(ctx context.Context, chatID string, userID int64) (*ChatMember, error) {
	var member ChatMember
	err := c.call(ctx, "getChatMember", map[string]interface{}{
		"chat_id": chatID,
		"user_id": userID,
	}, &member)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetUpdates 长轮询，timeout 单位秒
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]interface{}{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message", "callback_query"},
	}, &updates)
	return updates, err
}

// ==================== Webhook ====================

func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	payload := map[string]interface{}{
		"url":             url,
		"allowed_updates": []string{"message", "callback_query"},
	}
	if secret != "" {
		payload["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", payload, nil)
}

// DeleteWebhook 切换到轮询模式前需要删除 webhook
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]interface{}{}, nil)
}
