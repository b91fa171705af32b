package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/app/service"
	ws "github.com/ikkim/review-insight-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngestService struct {
	batchID string
	images  []service.ImageUpload
	failAll bool
}

func (f *fakeIngestService) ExtractBatch(ctx context.Context, batchID string, images []service.ImageUpload) (*service.ExtractionBatch, error) {
	f.batchID = batchID
	f.images = images
	batch := &service.ExtractionBatch{BatchID: batchID}
	for _, img := range images {
		if f.failAll {
			batch.Failures = append(batch.Failures, service.ExtractionFailure{Filename: img.Filename, Error: "model unavailable"})
			continue
		}
		batch.Drafts = append(batch.Drafts, model.ExtractedReview{
			UserName:       strPtr("Amy"),
			Content:        strPtr(string(img.Data)),
			SourceFilename: img.Filename,
		})
	}
	return batch, nil
}

func setupIngestControllerTest(t *testing.T, maxBytes int64) (*gin.Engine, *fakeIngestService) {
	t.Helper()
	reviewService, _ := setupReviewStack(t)
	ingest := &fakeIngestService{}
	ctrl := NewIngestController(ingest, reviewService, nil, []string{"http://localhost:5173"}, maxBytes)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/ingest/extract", ctrl.ExtractReviews)
	router.POST("/ingest/save", ctrl.SaveReviews)
	return router, ingest
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("images[]", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIngestController_ExtractReviews(t *testing.T) {
	router, ingest := setupIngestControllerTest(t, 1<<20)

	req := multipartRequest(t, map[string]string{"batch_id": "batch-1"}, map[string]string{
		"a.png": "first",
		"b.png": "second",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "batch-1", ingest.batchID)
	assert.Len(t, ingest.images, 2)

	var batch service.ExtractionBatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	assert.Equal(t, "batch-1", batch.BatchID)
	assert.Len(t, batch.Drafts, 2)
}

func TestIngestController_ExtractReviews_GeneratesBatchID(t *testing.T) {
	router, ingest := setupIngestControllerTest(t, 1<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, nil, map[string]string{"a.png": "x"}))

	require.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(ingest.batchID)
	assert.NoError(t, err)
}

func TestIngestController_ExtractReviews_NoImages(t *testing.T) {
	router, _ := setupIngestControllerTest(t, 1<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, map[string]string{"batch_id": "b"}, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INGEST_NO_IMAGES")

	req := httptest.NewRequest(http.MethodPost, "/ingest/extract", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestController_ExtractReviews_TooLarge(t *testing.T) {
	router, ingest := setupIngestControllerTest(t, 8)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, nil, map[string]string{"big.png": "more than eight bytes"}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "UPLOAD_FILE_TOO_LARGE")
	assert.Nil(t, ingest.images)
}

func TestIngestController_ExtractReviews_AllFailed(t *testing.T) {
	router, ingest := setupIngestControllerTest(t, 1<<20)
	ingest.failAll = true

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, nil, map[string]string{"a.png": "x", "b.png": "y"}))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "INGEST_EXTRACTION_FAILED")
	assert.Len(t, ingest.images, 2)
}

func TestIngestController_SaveReviews(t *testing.T) {
	router, _ := setupIngestControllerTest(t, 1<<20)

	drafts := map[string]interface{}{
		"drafts": []map[string]interface{}{
			{"user_name": "Amy", "content": "Great tea", "review_date": "2026-01-01", "rating_overall": 5},
			{"user_name": "Amy", "content": "Great tea", "review_date": "2026-01-02", "rating_overall": 4},
			{"user_name": "Ben", "content": "Fine", "review_date": "yesterday-ish", "rating_overall": 4},
		},
	}
	w := doJSON(router, http.MethodPost, "/ingest/save", drafts)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"saved":2,"skipped":1,"date_fallbacks":1}`, w.Body.String())

	// saving the same batch again stores nothing
	w = doJSON(router, http.MethodPost, "/ingest/save", drafts)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"saved":0,"skipped":3,"date_fallbacks":1}`, w.Body.String())

	w = doJSON(router, http.MethodPost, "/ingest/save", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestController_SubscribeBatch(t *testing.T) {
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	ctrl := NewIngestController(&fakeIngestService{}, nil, hub, []string{"http://localhost:5173"}, 1<<20)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ingest/batches/:batch_id/ws", ctrl.SubscribeBatch)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ingest/batches/batch-9/ws"

	// origins outside the allow-list are refused
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Subscribers("batch-9") == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish("batch-9", service.ProgressEvent{Type: service.EventBatchDone, BatchID: "batch-9", Completed: 1, Total: 1}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event service.ProgressEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, service.EventBatchDone, event.Type)
	assert.Equal(t, 1, event.Total)
}
