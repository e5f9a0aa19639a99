package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account_listing_bot/internal/controller"
	"account_listing_bot/internal/middleware"
	"account_listing_bot/internal/model"
	"account_listing_bot/internal/repository"
)

type stubAdmin struct{}

func (stubAdmin) List(ctx context.Context, filter repository.ListingFilter) ([]model.Listing, int64, error) {
	return nil, 0, nil
}

func (stubAdmin) Get(ctx context.Context, id int64) (*model.Listing, error) {
	return &model.Listing{}, nil
}

func (stubAdmin) Review(ctx context.Context, id int64, approve bool, reviewer int64) (*model.Listing, error) {
	return &model.Listing{Status: model.ListingStatusActive}, nil
}

func TestInitRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	jwtCfg := middleware.JWTConfig{Secret: "secret", Issuer: "listingbot", TTL: time.Hour}
	token, err := middleware.IssueReviewerToken(jwtCfg, 900, "ops", time.Now())
	require.NoError(t, err)
	InitRoutes(r, nil, controller.NewListingController(stubAdmin{}), Options{
		JWT:            jwtCfg,
		AdminUserID:    900,
		Limiter:        middleware.NewCooldown(),
		ReviewInterval: time.Minute,
	})

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"健康检查", http.MethodGet, "/healthz", "", http.StatusOK},
		{"轮询模式无 webhook", http.MethodPost, "/telegram/webhook", "", http.StatusNotFound},
		{"缺少令牌", http.MethodGet, "/api/listings", "", http.StatusUnauthorized},
		{"列表", http.MethodGet, "/api/listings", token, http.StatusOK},
		{"审核", http.MethodPost, "/api/listings/1/approve", token, http.StatusOK},
		{"审核限流", http.MethodPost, "/api/listings/1/reject", token, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
