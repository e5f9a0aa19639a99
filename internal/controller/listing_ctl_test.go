package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account_listing_bot/internal/middleware"
	"account_listing_bot/internal/model"
	"account_listing_bot/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 请求构造辅助 ====================

func doRequest(r http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ==================== Mock ====================

type mockListingAdmin struct {
	ListFn   func(filter repository.ListingFilter) ([]model.Listing, int64, error)
	GetFn    func(id int64) (*model.Listing, error)
	ReviewFn func(id int64, approve bool, reviewer int64) (*model.Listing, error)
}

func (m *mockListingAdmin) List(ctx context.Context, filter repository.ListingFilter) ([]model.Listing, int64, error) {
	return m.ListFn(filter)
}

func (m *mockListingAdmin) Get(ctx context.Context, id int64) (*model.Listing, error) {
	return m.GetFn(id)
}

func (m *mockListingAdmin) Review(ctx context.Context, id int64, approve bool, reviewer int64) (*model.Listing, error) {
	return m.ReviewFn(id, approve, reviewer)
}

func listingRouter(admin ListingAdmin) *gin.Engine {
	r := gin.New()
	ctl := NewListingController(admin)
	g := r.Group("/api/listings", middleware.AdminAuth(testJWT, 900))
	g.GET("", ctl.List)
	g.GET("/:id", ctl.Detail)
	g.POST("/:id/approve", ctl.Approve)
	g.POST("/:id/reject", ctl.Reject)
	return r
}

var testJWT = middleware.JWTConfig{Secret: "secret", Issuer: "listingbot", TTL: time.Hour}

func reviewerHeaders(reviewerID int64) map[string]string {
	token, err := middleware.IssueReviewerToken(testJWT, reviewerID, "ops", time.Now())
	if err != nil {
		panic(err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

var adminHeaders = reviewerHeaders(900)

// ==================== 测试 ====================

func TestListingController_List(t *testing.T) {
	var got repository.ListingFilter
	admin := &mockListingAdmin{ListFn: func(filter repository.ListingFilter) ([]model.Listing, int64, error) {
		got = filter
		l := model.Listing{UserID: 7, Status: model.ListingStatusPending, Data: []byte(`{"platform":"PC - Steam"}`)}
		l.ID = 1
		return []model.Listing{l}, 1, nil
	}}
	r := listingRouter(admin)

	w := doRequest(r, http.MethodGet, "/api/listings?status=pending&page_size=500", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, repository.ListingFilter{Status: "pending", Page: 1, PageSize: 20}, got)

	resp := decode(t, w)
	assert.Equal(t, 0, resp.Code)
	var data struct {
		List []struct {
			ID       int64  `json:"id"`
			Platform string `json:"platform"`
		} `json:"list"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, int64(1), data.Total)
	require.Len(t, data.List, 1)
	assert.Equal(t, "PC - Steam", data.List[0].Platform)
}

func TestListingController_Unauthorized(t *testing.T) {
	r := listingRouter(&mockListingAdmin{})
	w := doRequest(r, http.MethodGet, "/api/listings", nil, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, http.MethodPost, "/api/listings/1/approve", nil, reviewerHeaders(901))
	assert.Equal(t, http.StatusForbidden, w.Code, "令牌有效但不是审核人")
}

func TestListingController_Review(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantApprov bool
	}{
		{"通过", "/api/listings/3/approve", nil, http.StatusOK, true},
		{"拒绝", "/api/listings/3/reject", nil, http.StatusOK, false},
		{"不存在", "/api/listings/3/approve", repository.ErrListingNotFound, http.StatusNotFound, true},
		{"重复审核", "/api/listings/3/approve", model.ErrNotReviewable, http.StatusConflict, true},
		{"内部错误", "/api/listings/3/approve", errors.New("db down"), http.StatusInternalServerError, true},
		{"非法ID", "/api/listings/abc/approve", nil, http.StatusBadRequest, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotApprove bool
			var gotReviewer int64
			admin := &mockListingAdmin{ReviewFn: func(id int64, approve bool, reviewer int64) (*model.Listing, error) {
				gotApprove, gotReviewer = approve, reviewer
				if tt.err != nil {
					return nil, tt.err
				}
				l := &model.Listing{Status: model.ListingStatusActive}
				l.ID = id
				return l, nil
			}}

			w := doRequest(listingRouter(admin), http.MethodPost, tt.path, nil, adminHeaders)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusBadRequest {
				assert.Equal(t, tt.wantApprov, gotApprove)
				assert.Equal(t, int64(900), gotReviewer)
			}
		})
	}
}

func TestListingController_Detail(t *testing.T) {
	admin := &mockListingAdmin{GetFn: func(id int64) (*model.Listing, error) {
		return nil, repository.ErrListingNotFound
	}}
	w := doRequest(listingRouter(admin), http.MethodGet, "/api/listings/9", nil, adminHeaders)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 404, decode(t, w).Code)
}
