package controller

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"account_listing_bot/internal/bot"
	"account_listing_bot/pkg/telegram"
)

// SecretTokenHeader setWebhook 时登记的密钥，由 Telegram 在每次推送时带上
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateSink 接收更新，由 *bot.UpdateQueue 实现
type UpdateSink interface {
	Enqueue(upd telegram.Update) error
}

// WebhookController Telegram webhook 入口，只做校验和入队
type WebhookController struct {
	sink   UpdateSink
	secret string
	log    *zap.Logger
}

func NewWebhookController(sink UpdateSink, secret string, log *zap.Logger) *WebhookController {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookController{sink: sink, secret: secret, log: log}
}

// Receive POST /telegram/webhook
// 处理在队列中异步完成；队列满返回 503 由 Telegram 重试
func (ctrl *WebhookController) Receive(c *gin.Context) {
	if ctrl.secret != "" {
		got := c.GetHeader(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(ctrl.secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未授权"})
			return
		}
	}

	var upd telegram.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	if err := ctrl.sink.Enqueue(upd); err != nil {
		if errors.Is(err, bot.ErrQueueFull) {
			ctrl.log.Warn("更新队列已满", zap.Int64("update_id", upd.UpdateID))
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success"})
}
