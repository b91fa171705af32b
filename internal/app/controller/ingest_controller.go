package controller

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/app/service"
	apperrors "github.com/ikkim/review-insight-backend/internal/errors"
	"github.com/ikkim/review-insight-backend/internal/middleware"
	ws "github.com/ikkim/review-insight-backend/internal/websocket"
)

// maxBatchImages bounds one extraction request.
const maxBatchImages = 50

type IngestController struct {
	ingestService service.IngestService
	reviewService service.ReviewService
	hub           *ws.Hub
	upgrader      websocket.Upgrader
	maxBytes      int64
}

func NewIngestController(
	ingestService service.IngestService,
	reviewService service.ReviewService,
	hub *ws.Hub,
	allowedOrigins []string,
	maxBytes int64,
) *IngestController {
	return &IngestController{
		ingestService: ingestService,
		reviewService: reviewService,
		hub:           hub,
		maxBytes:      maxBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker applies the CORS allow-list to websocket handshakes.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || allowed == origin {
				return true
			}
		}
		return false
	}
}

// ExtractReviews 스크린샷 배치에서 리뷰 초안 추출
// POST /api/v1/ingest/extract (multipart: images[], batch_id)
func (ctrl *IngestController) ExtractReviews(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctrl.maxBytes*maxBatchImages+1<<20)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.RequestTooLarge(c, "The upload is too large")
			return
		}
		apperrors.BadRequest(c, apperrors.IngestNoImages, "Upload at least one screenshot in images[]")
		return
	}

	files := form.File["images[]"]
	if len(files) == 0 {
		files = form.File["images"]
	}
	if len(files) == 0 {
		apperrors.BadRequest(c, apperrors.IngestNoImages, "Upload at least one screenshot in images[]")
		return
	}
	if len(files) > maxBatchImages {
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Too many screenshots in one batch")
		return
	}

	images := make([]service.ImageUpload, 0, len(files))
	for _, fh := range files {
		if fh.Size > ctrl.maxBytes {
			apperrors.RequestTooLarge(c, fh.Filename+" exceeds the upload size limit")
			return
		}
		data, err := readUpload(fh)
		if err != nil {
			log.Error("Failed to read uploaded screenshot", err, map[string]interface{}{
				"filename": fh.Filename,
			})
			apperrors.BadRequest(c, apperrors.UploadFailed, "Could not read "+fh.Filename)
			return
		}
		images = append(images, service.ImageUpload{Filename: fh.Filename, Data: data})
	}

	batchID := c.PostForm("batch_id")
	if batchID == "" {
		batchID = uuid.NewString()
	}

	batch, err := ctrl.ingestService.ExtractBatch(c.Request.Context(), batchID, images)
	if err != nil {
		if errors.Is(err, service.ErrNoImages) {
			apperrors.BadRequest(c, apperrors.IngestNoImages, "Upload at least one screenshot in images[]")
			return
		}
		log.Error("Extraction batch failed", err, map[string]interface{}{
			"batch_id": batchID,
		})
		apperrors.ParseAndRespond(c, 0, err, "extract reviews")
		return
	}

	// 모든 이미지 추출 실패: 부분 성공과 구분
	if len(batch.Drafts) == 0 && len(batch.Failures) == len(images) {
		log.Warn("Every screenshot in the batch failed extraction", map[string]interface{}{
			"batch_id": batchID,
			"images":   len(images),
			"error":    batch.Failures[0].Error,
		})
		apperrors.BadGateway(c, apperrors.IngestExtractionFailed,
			fmt.Sprintf("None of the %d screenshots could be extracted. Please try again shortly", len(images)))
		return
	}

	c.JSON(http.StatusOK, batch)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type saveDraftsRequest struct {
	Drafts []model.ExtractedReview `json:"drafts" binding:"required"`
}

// SaveReviews 확인된 초안 저장
// POST /api/v1/ingest/save
func (ctrl *IngestController) SaveReviews(c *gin.Context) {
	var req saveDraftsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid drafts")
		return
	}

	result, err := ctrl.reviewService.SaveReviews(c.Request.Context(), req.Drafts)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to save reviews", err, map[string]interface{}{
			"drafts": len(req.Drafts),
		})
		apperrors.ParseAndRespond(c, 0, err, "save reviews")
		return
	}
	c.JSON(http.StatusOK, result)
}

// SubscribeBatch 배치 진행 상황 WebSocket
// GET /api/v1/ingest/batches/:batch_id/ws
func (ctrl *IngestController) SubscribeBatch(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	batchID := c.Param("batch_id")

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Warn("Failed to upgrade to WebSocket", map[string]interface{}{
			"batch_id": batchID,
			"error":    err.Error(),
		})
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, batchID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Batch progress subscriber connected", map[string]interface{}{
		"batch_id": batchID,
	})
}
