package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/app/service"
	apperrors "github.com/ikkim/review-insight-backend/internal/errors"
	"github.com/ikkim/review-insight-backend/internal/middleware"
)

type ReviewController struct {
	reviewService service.ReviewService
}

func NewReviewController(reviewService service.ReviewService) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
	}
}

// ListReviews 리뷰 목록 (id 내림차순)
// GET /api/v1/reviews?start=&end=
func (ctrl *ReviewController) ListReviews(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}

	reviews, err := ctrl.reviewService.ListReviews(c.Request.Context(), req)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to list reviews", err)
		apperrors.ParseAndRespond(c, 0, err, "list reviews")
		return
	}

	data := make([]model.ReviewResponse, len(reviews))
	for i := range reviews {
		data[i] = reviews[i].ToResponse()
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews": data,
		"count":   len(data),
	})
}

// GetReview 리뷰 단건 조회
func (ctrl *ReviewController) GetReview(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	review, err := ctrl.reviewService.GetReview(c.Request.Context(), id)
	if err != nil {
		ctrl.respondError(c, err, "get review")
		return
	}
	c.JSON(http.StatusOK, review.ToResponse())
}

// UpdateReview 리뷰 직접 수정 (전체 교체)
// PUT /api/v1/reviews/:id
func (ctrl *ReviewController) UpdateReview(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	var req model.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid review update", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid review data")
		return
	}

	review, err := ctrl.reviewService.UpdateReview(c.Request.Context(), id, &req)
	if err != nil {
		ctrl.respondError(c, err, "update review")
		return
	}
	c.JSON(http.StatusOK, review.ToResponse())
}

func (ctrl *ReviewController) DeleteReview(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	if err := ctrl.reviewService.DeleteReview(c.Request.Context(), id); err != nil {
		ctrl.respondError(c, err, "delete review")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
}

type deleteReviewsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

// DeleteReviews 여러 리뷰 삭제
// POST /api/v1/reviews/delete
func (ctrl *ReviewController) DeleteReviews(c *gin.Context) {
	var req deleteReviewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "ids must list at least one review")
		return
	}

	deleted, err := ctrl.reviewService.DeleteReviews(c.Request.Context(), req.IDs)
	if err != nil {
		ctrl.respondError(c, err, "delete reviews")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ExportReviews 전체 리뷰 파일로 내보내기
// GET /api/v1/reviews/export?format=csv|xlsx
func (ctrl *ReviewController) ExportReviews(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportCSV)))

	file, err := ctrl.reviewService.ExportReviews(c.Request.Context(), format)
	if err != nil {
		ctrl.respondError(c, err, "export reviews")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (ctrl *ReviewController) respondError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, service.ErrReviewNotFound):
		apperrors.NotFound(c, apperrors.ReviewNotFound, "Review not found")
	case errors.Is(err, service.ErrInvalidRating):
		apperrors.BadRequest(c, apperrors.ReviewInvalidRating, "Ratings must be between 0 and 5")
	case errors.Is(err, service.ErrInvalidReviewDate):
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "review_date is not a recognizable date")
	case errors.Is(err, service.ErrNoReviewIDs):
		apperrors.BadRequest(c, apperrors.ValidationRequired, "ids must list at least one review")
	case errors.Is(err, service.ErrExportFormat):
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "format must be csv or xlsx")
	default:
		middleware.GetLoggerFromContext(c).Error("Review request failed", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ParseAndRespond(c, 0, err, action)
	}
}
