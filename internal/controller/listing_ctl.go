package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"account_listing_bot/internal/api/dto"
	"account_listing_bot/internal/middleware"
	"account_listing_bot/internal/model"
	"account_listing_bot/internal/repository"
)

// ListingAdmin 管理 API 依赖的 listing 操作，由 *service.ListingService 实现
type ListingAdmin interface {
	List(ctx context.Context, filter repository.ListingFilter) ([]model.Listing, int64, error)
	Get(ctx context.Context, id int64) (*model.Listing, error)
	Review(ctx context.Context, id int64, approve bool, reviewer int64) (*model.Listing, error)
}

// ListingController 管理员审核 API
type ListingController struct {
	listings ListingAdmin
}

func NewListingController(listings ListingAdmin) *ListingController {
	return &ListingController{listings: listings}
}

// ==================== API 方法 ====================

// List 分页查询 listing，支持按状态和用户筛选
// GET /api/listings?status=pending&page=1&page_size=20
func (ctrl *ListingController) List(c *gin.Context) {
	var req dto.ListingListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	listings, total, err := ctrl.listings.List(c.Request.Context(), repository.ListingFilter{
		UserID:   req.UserID,
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询失败: " + err.Error(),
		})
		return
	}

	resp := dto.ListingListResp{List: make([]dto.ListingResp, 0, len(listings)), Total: total, Page: req.Page, PageSize: req.PageSize}
	for i := range listings {
		resp.List = append(resp.List, dto.ToListingResp(&listings[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// Detail GET /api/listings/:id
func (ctrl *ListingController) Detail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	listing, err := ctrl.listings.Get(c.Request.Context(), id)
	if err != nil {
		respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.ToListingResp(listing),
	})
}

// Approve POST /api/listings/:id/approve
func (ctrl *ListingController) Approve(c *gin.Context) {
	ctrl.review(c, true)
}

// Reject POST /api/listings/:id/reject
func (ctrl *ListingController) Reject(c *gin.Context) {
	ctrl.review(c, false)
}

func (ctrl *ListingController) review(c *gin.Context, approve bool) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	listing, err := ctrl.listings.Review(ctx, id, approve, middleware.GetAuditUserID(ctx))
	if err != nil {
		respondListingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "审核完成",
		"data":    dto.ToListingResp(listing),
	})
}

// ==================== 辅助 ====================

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的ID",
		})
		return 0, false
	}
	return id, true
}

func respondListingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "listing 不存在"})
	case errors.Is(err, model.ErrNotReviewable):
		c.JSON(http.StatusConflict, gin.H{"code": 409, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
	}
}
