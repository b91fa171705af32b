package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/review-insight-backend/internal/analytics"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/app/service"
	apperrors "github.com/ikkim/review-insight-backend/internal/errors"
	"github.com/ikkim/review-insight-backend/internal/middleware"
)

// SSE event names of the report stream
const (
	sseChunk = "chunk"
	sseDone  = "done"
	sseError = "error"
)

type ReportController struct {
	reportService service.ReportService
}

func NewReportController(reportService service.ReportService) *ReportController {
	return &ReportController{
		reportService: reportService,
	}
}

// GenerateReport 리포트 생성. 본문은 SSE로 스트리밍
// POST /api/v1/reports
//
// Errors found before the first chunk are plain JSON responses. After the
// stream starts they arrive as an "error" event.
func (ctrl *ReportController) GenerateReport(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req model.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "language must be English or Chinese")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "start_date must be a YYYY-MM-DD date")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "end_date must be a YYYY-MM-DD date")
		return
	}

	streaming := false
	onChunk := func(text string) error {
		if !streaming {
			streaming = true
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
		}
		c.SSEvent(sseChunk, gin.H{"text": text})
		c.Writer.Flush()
		// stop generating once the client is gone
		return c.Request.Context().Err()
	}

	report, err := ctrl.reportService.GenerateReport(c.Request.Context(), service.GenerateReportInput{
		Range:    analytics.RangeRequest{Start: start, End: end},
		Language: req.Language,
	}, onChunk)
	if err != nil {
		if streaming {
			log.Error("Report stream failed", err)
			info := apperrors.ParseError(err, "generate report")
			c.SSEvent(sseError, apperrors.ErrorResponse{Error: info.Code, Message: info.Message})
			c.Writer.Flush()
			return
		}
		ctrl.respondError(c, err)
		return
	}

	if !streaming {
		c.Header("Cache-Control", "no-cache")
	}
	c.SSEvent(sseDone, report.ToResponse())
	c.Writer.Flush()
}

// GetLatestReport 마지막 리포트
func (ctrl *ReportController) GetLatestReport(c *gin.Context) {
	report, err := ctrl.reportService.LatestReport(c.Request.Context())
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report.ToResponse())
}

// ListReports 리포트 이력
// GET /api/v1/reports?page=&page_size=
func (ctrl *ReportController) ListReports(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	reports, total, err := ctrl.reportService.ListReports(c.Request.Context(), page, pageSize)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to list reports", err)
		apperrors.InternalError(c, "Failed to load report history")
		return
	}

	data := make([]model.ReportResponse, len(reports))
	for i := range reports {
		data[i] = reports[i].ToResponse()
	}
	c.JSON(http.StatusOK, gin.H{
		"reports":   data,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (ctrl *ReportController) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		apperrors.NotFound(c, apperrors.ReportNotFound, "No report has been generated yet")
	case errors.Is(err, service.ErrNoReviewsInRange):
		apperrors.BadRequest(c, apperrors.ReportNoReviews, "There are no reviews in the selected range")
	case errors.Is(err, service.ErrReportInProgress):
		apperrors.Conflict(c, apperrors.ReportInProgress, "Another report is being generated. Please wait")
	default:
		middleware.GetLoggerFromContext(c).Error("Report request failed", err)
		apperrors.ParseAndRespond(c, 0, err, "generate report")
	}
}
