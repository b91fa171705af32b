package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/review-insight-backend/config"
	"github.com/ikkim/review-insight-backend/internal/app/controller"
	"github.com/ikkim/review-insight-backend/internal/metrics"
	"github.com/ikkim/review-insight-backend/internal/middleware"
)

type Router struct {
	healthController   *controller.HealthController
	ingestController   *controller.IngestController
	reviewController   *controller.ReviewController
	analysisController *controller.AnalysisController
	reportController   *controller.ReportController
	metrics            *metrics.Metrics
	config             *config.Config
}

func NewRouter(
	healthController *controller.HealthController,
	ingestController *controller.IngestController,
	reviewController *controller.ReviewController,
	analysisController *controller.AnalysisController,
	reportController *controller.ReportController,
	m *metrics.Metrics,
	cfg *config.Config,
) *Router {
	return &Router{
		healthController:   healthController,
		ingestController:   ingestController,
		reviewController:   reviewController,
		analysisController: analysisController,
		reportController:   reportController,
		metrics:            m,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware(r.metrics))
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", r.healthController.Health)
	router.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	// Serve stored screenshots when the local driver is used
	if d := r.config.Storage.Driver; d == "" || d == "local" {
		router.Static("/uploads", r.config.Storage.LocalDir)
	}

	v1 := router.Group("/api/v1")
	{
		ingest := v1.Group("/ingest")
		{
			ingest.POST("/extract", r.ingestController.ExtractReviews)
			ingest.POST("/save", r.ingestController.SaveReviews)
			ingest.GET("/batches/:batch_id/ws", r.ingestController.SubscribeBatch)
		}

		reviews := v1.Group("/reviews")
		{
			reviews.GET("", r.reviewController.ListReviews)
			reviews.GET("/export", r.reviewController.ExportReviews)
			reviews.POST("/delete", r.reviewController.DeleteReviews)
			reviews.GET("/:id", r.reviewController.GetReview)
			reviews.PUT("/:id", r.reviewController.UpdateReview)
			reviews.DELETE("/:id", r.reviewController.DeleteReview)
		}

		analysis := v1.Group("/analysis")
		{
			analysis.GET("/dashboard", r.analysisController.GetDashboard)
			analysis.GET("/daily", r.analysisController.GetDailySeries)
			analysis.GET("/sentiment", r.analysisController.GetSentiment)
		}

		reports := v1.Group("/reports")
		{
			reports.POST("", r.reportController.GenerateReport)
			reports.GET("", r.reportController.ListReports)
			reports.GET("/latest", r.reportController.GetLatestReport)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
