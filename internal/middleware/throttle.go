package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== HTTP 限流中间件 ====================

// Throttle 按客户端 IP + scope 限流
//
// 使用示例:
//
//	admin.POST("/listings/:id/approve",
//	    middleware.Throttle(cooldown, "review", time.Second),
//	    ctl.Approve,
//	)
func Throttle(limiter *Cooldown, scope string, interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := limiter.Take(ClientKey(c.ClientIP(), scope), interval)
		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": RetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": int(result.RetryAfter.Seconds()),
					"scope":       scope,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
