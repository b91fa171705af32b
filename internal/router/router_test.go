package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ikkim/review-insight-backend/config"
	"github.com/ikkim/review-insight-backend/internal/app/controller"
	"github.com/ikkim/review-insight-backend/internal/app/repository"
	"github.com/ikkim/review-insight-backend/internal/app/service"
	"github.com/ikkim/review-insight-backend/internal/cache"
	"github.com/ikkim/review-insight-backend/internal/db"
	"github.com/ikkim/review-insight-backend/internal/metrics"
	"github.com/ikkim/review-insight-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	m, err := metrics.New()
	require.NoError(t, err)

	cfg := &config.Config{
		Server:  config.ServerConfig{GinMode: "test"},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Storage: config.StorageConfig{Driver: "s3"},
	}

	reviewRepo := repository.NewReviewRepository(testDB)
	snapshots := cache.NewSnapshotCache(time.Minute, reviewRepo.FindAll, m)
	reviewService := service.NewReviewService(reviewRepo, snapshots, util.NewReviewDateParser(2026), m)
	analysisService := service.NewAnalysisService(snapshots)
	reportService := service.NewReportService(nil, repository.NewReportRepository(testDB), snapshots, service.NewLocalLocker(), m)
	ingestService := service.NewIngestService(nil, nil, nil, 1, 1<<20, m)

	r := NewRouter(
		controller.NewHealthController(func(context.Context) error { return nil }),
		controller.NewIngestController(ingestService, reviewService, nil, cfg.CORS.AllowedOrigins, 1<<20),
		controller.NewReviewController(reviewService),
		controller.NewAnalysisController(analysisService),
		controller.NewReportController(reportService),
		m,
		cfg,
	)
	return r.Setup()
}

func get(h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Routes(t *testing.T) {
	h := setupRouter(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/api/v1/reviews", http.StatusOK},
		{"/api/v1/reviews/export?format=csv", http.StatusOK},
		{"/api/v1/reviews/1", http.StatusNotFound},
		{"/api/v1/analysis/dashboard", http.StatusOK},
		{"/api/v1/analysis/daily", http.StatusOK},
		{"/api/v1/analysis/sentiment", http.StatusOK},
		{"/api/v1/reports", http.StatusOK},
		{"/api/v1/reports/latest", http.StatusNotFound},
		{"/api/v1/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(h, tt.path, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	h := setupRouter(t)

	get(h, "/api/v1/reviews", nil)
	w := get(h, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="/api/v1/reviews"`)
}

func TestRouter_CORS(t *testing.T) {
	h := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reviews", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(h, "/api/v1/reviews", http.Header{"Origin": {"http://evil.example"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
