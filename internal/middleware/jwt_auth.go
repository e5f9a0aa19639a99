package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ==================== JWT 配置 ====================

// JWTConfig 管理 API 令牌配置
type JWTConfig struct {
	Secret string        // HS256 签名密钥，为空时管理 API 拒绝所有请求
	Issuer string        // 签发者，非空时校验
	TTL    time.Duration // 签发令牌的有效期
}

// tokenSubject 审核令牌的 sub
const tokenSubject = "reviewer"

var (
	ErrNoSecret     = errors.New("jwt secret is not configured")
	ErrInvalidToken = errors.New("invalid token")
)

// ==================== Claims 定义 ====================

// ReviewerClaims 审核人声明，ReviewerID 即 Telegram 用户 ID
type ReviewerClaims struct {
	ReviewerID int64  `json:"reviewer_id"`
	Name       string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ==================== Token 签发与解析 ====================

// IssueReviewerToken 签发审核令牌（cmd token 子命令使用）
func IssueReviewerToken(cfg JWTConfig, reviewerID int64, name string, now time.Time) (string, error) {
	if cfg.Secret == "" {
		return "", ErrNoSecret
	}
	claims := &ReviewerClaims{
		ReviewerID: reviewerID,
		Name:       name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   tokenSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// ParseReviewerToken 只接受 HS256 且必须带过期时间
func ParseReviewerToken(cfg JWTConfig, raw string) (*ReviewerClaims, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &ReviewerClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject != tokenSubject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ==================== Gin 中间件 ====================

// AdminAuth 校验 Bearer 令牌；令牌中的审核人必须在 reviewers 中
// 通过后审核人写入审计上下文，供 GetAuditUserID 读取
func AdminAuth(cfg JWTConfig, reviewers ...int64) gin.HandlerFunc {
	allowed := make(map[int64]bool, len(reviewers))
	for _, id := range reviewers {
		if id != 0 {
			allowed[id] = true
		}
	}

	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "认证格式错误，应为 Bearer {token}")
			return
		}

		claims, err := ParseReviewerToken(cfg, raw)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "Token 无效或已过期")
			return
		}
		if !allowed[claims.ReviewerID] {
			abortJSON(c, http.StatusForbidden, "无权限访问")
			return
		}

		ctx := WithAuditInfo(c.Request.Context(), claims.ReviewerID, claims.Name)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abortJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
	c.Abort()
}
