package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/review-insight-backend/internal/app/service"
	apperrors "github.com/ikkim/review-insight-backend/internal/errors"
	"github.com/ikkim/review-insight-backend/internal/middleware"
)

type AnalysisController struct {
	analysisService service.AnalysisService
}

func NewAnalysisController(analysisService service.AnalysisService) *AnalysisController {
	return &AnalysisController{
		analysisService: analysisService,
	}
}

// GetDashboard 상단 지표 + 일별 통계 + 감성 분포
// GET /api/v1/analysis/dashboard?start=&end=
func (ctrl *AnalysisController) GetDashboard(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}

	dash, err := ctrl.analysisService.Dashboard(c.Request.Context(), req)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to build dashboard", err)
		apperrors.InternalError(c, "Failed to load the dashboard")
		return
	}
	c.JSON(http.StatusOK, dash)
}

// GetDailySeries 일별 통계만
func (ctrl *AnalysisController) GetDailySeries(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}

	series, err := ctrl.analysisService.DailySeries(c.Request.Context(), req)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to build daily series", err)
		apperrors.InternalError(c, "Failed to load daily statistics")
		return
	}
	c.JSON(http.StatusOK, series)
}

// GetSentiment 감성 요약 통계
func (ctrl *AnalysisController) GetSentiment(c *gin.Context) {
	req, ok := bindRange(c)
	if !ok {
		return
	}

	result, err := ctrl.analysisService.Sentiment(c.Request.Context(), req)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to summarize sentiment", err)
		apperrors.InternalError(c, "Failed to load sentiment statistics")
		return
	}
	c.JSON(http.StatusOK, result)
}
