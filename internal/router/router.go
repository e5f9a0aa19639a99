package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"account_listing_bot/internal/controller"
	"account_listing_bot/internal/middleware"
)

// Options 路由依赖的安全配置
type Options struct {
	JWT         middleware.JWTConfig
	AdminUserID int64
	Limiter     *middleware.Cooldown
	// ReviewInterval 同一客户端两次审核请求的最小间隔
	ReviewInterval time.Duration
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	webhookCtl *controller.WebhookController,
	listingCtl *controller.ListingController,
	opts Options) {
	// 1. 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 0, "message": "ok"})
	})

	// 2. Telegram webhook（轮询模式下不注册）
	if webhookCtl != nil {
		r.POST("/telegram/webhook", webhookCtl.Receive)
	}

	// 3. 管理 API
	api := r.Group("/api", middleware.AdminAuth(opts.JWT, opts.AdminUserID))
	{
		// listing 审核
		listings := api.Group("/listings")
		{
			// GET /api/listings
			listings.GET("", listingCtl.List)
			// GET /api/listings/:id
			listings.GET("/:id", listingCtl.Detail)
			// POST /api/listings/:id/approve
			listings.POST("/:id/approve", middleware.Throttle(opts.Limiter, "review", opts.ReviewInterval), listingCtl.Approve)
			// POST /api/listings/:id/reject
			listings.POST("/:id/reject", middleware.Throttle(opts.Limiter, "review", opts.ReviewInterval), listingCtl.Reject)
		}
	}
}
