package service

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/metrics"
	"github.com/ikkim/review-insight-backend/internal/storage"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoImages = errors.New("no images uploaded")
)

// 진행 이벤트 종류
const (
	EventImageDone   = "image_done"
	EventImageFailed = "image_failed"
	EventBatchDone   = "batch_done"
)

// ImageUpload 업로드된 스크린샷 한 장
type ImageUpload struct {
	Filename string
	Data     []byte
}

// ExtractionFailure 추출 실패 (이미지 단위)
type ExtractionFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// DuplicateDraft 같은 배치 안에서 중복된 초안
type DuplicateDraft struct {
	Filename    string `json:"filename"`
	DuplicateOf string `json:"duplicate_of"`
}

// ExtractionBatch 배치 추출 결과. Drafts are in completion order.
type ExtractionBatch struct {
	BatchID    string                  `json:"batch_id"`
	Drafts     []model.ExtractedReview `json:"drafts"`
	Failures   []ExtractionFailure     `json:"failures"`
	Duplicates []DuplicateDraft        `json:"duplicates"`
}

// ProgressEvent 배치 진행 이벤트 (WebSocket 전송)
type ProgressEvent struct {
	Type      string `json:"type"`
	BatchID   string `json:"batch_id"`
	Filename  string `json:"filename,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

// ProgressPublisher delivers progress events to the subscribers of a batch.
type ProgressPublisher interface {
	Publish(batchID string, event interface{}) error
}

// IngestService 스크린샷 배치 추출 서비스
type IngestService interface {
	ExtractBatch(ctx context.Context, batchID string, images []ImageUpload) (*ExtractionBatch, error)
}

type ingestService struct {
	ai        AIService
	images    storage.ImageStore
	publisher ProgressPublisher
	workers   int
	maxBytes  int64
	metrics   *metrics.Metrics
}

// NewIngestService 추출 서비스 생성자. publisher and m may be nil.
func NewIngestService(
	ai AIService,
	images storage.ImageStore,
	publisher ProgressPublisher,
	workers int,
	maxBytes int64,
	m *metrics.Metrics,
) IngestService {
	if workers < 1 {
		workers = 1
	}
	return &ingestService{
		ai:        ai,
		images:    images,
		publisher: publisher,
		workers:   workers,
		maxBytes:  maxBytes,
		metrics:   m,
	}
}

type imageResult struct {
	filename string
	draft    *model.ExtractedReview
	err      error
}

// ExtractBatch 이미지를 병렬로 추출. 한 장의 실패는 다른 이미지에 영향 없음
func (s *ingestService) ExtractBatch(ctx context.Context, batchID string, images []ImageUpload) (*ExtractionBatch, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	logger.Info("Extraction batch started", map[string]interface{}{
		"batch_id": batchID,
		"images":   len(images),
		"workers":  s.workers,
	})

	results := make(chan imageResult)
	collected := make([]imageResult, 0, len(images))
	collectorDone := make(chan struct{})

	// single collector: results are appended in completion order
	go func() {
		defer close(collectorDone)
		for res := range results {
			collected = append(collected, res)
			s.publishProgress(batchID, res, len(collected), len(images))
		}
	}()

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, img := range images {
		img := img
		g.Go(func() error {
			results <- s.processImage(ctx, img)
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	<-collectorDone

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := &ExtractionBatch{
		BatchID:    batchID,
		Drafts:     []model.ExtractedReview{},
		Failures:   []ExtractionFailure{},
		Duplicates: []DuplicateDraft{},
	}
	for _, res := range collected {
		if res.err != nil {
			batch.Failures = append(batch.Failures, ExtractionFailure{Filename: res.filename, Error: res.err.Error()})
			continue
		}
		batch.Drafts = append(batch.Drafts, *res.draft)
	}
	batch.Drafts, batch.Duplicates = dedupeDrafts(batch.Drafts)
	for range batch.Duplicates {
		s.metrics.RecordImage("duplicate", 0)
	}

	s.publish(batchID, ProgressEvent{
		Type:      EventBatchDone,
		BatchID:   batchID,
		Completed: len(collected),
		Total:     len(images),
	})

	logger.Info("Extraction batch finished", map[string]interface{}{
		"batch_id":   batchID,
		"drafts":     len(batch.Drafts),
		"failures":   len(batch.Failures),
		"duplicates": len(batch.Duplicates),
	})
	return batch, nil
}

// processImage 검증, 원본 저장, 필드 추출
func (s *ingestService) processImage(ctx context.Context, img ImageUpload) imageResult {
	start := time.Now()
	res := imageResult{filename: img.Filename}

	info, err := storage.ValidateImage(img.Data, s.maxBytes)
	if err != nil {
		s.metrics.RecordImage("invalid", time.Since(start))
		res.err = err
		return res
	}

	path, err := s.images.Save(ctx, img.Filename, info, img.Data)
	if err != nil {
		logger.Error("Failed to store screenshot", err, map[string]interface{}{
			"filename": img.Filename,
		})
		s.metrics.RecordImage("failed", time.Since(start))
		res.err = err
		return res
	}

	draft, err := s.ai.ExtractReview(ctx, img.Data, info.MimeType)
	if err != nil {
		logger.Warn("Extraction failed", map[string]interface{}{
			"filename": img.Filename,
			"error":    err.Error(),
		})
		s.metrics.RecordImage("failed", time.Since(start))
		res.err = err
		return res
	}

	draft.SourceFilename = img.Filename
	draft.ImagePath = path
	s.metrics.RecordImage("extracted", time.Since(start))
	res.draft = draft
	return res
}

// dedupeDrafts keeps the first draft of every (user_name, content) pair.
// Drafts missing either field are never treated as duplicates.
func dedupeDrafts(drafts []model.ExtractedReview) ([]model.ExtractedReview, []DuplicateDraft) {
	kept := make([]model.ExtractedReview, 0, len(drafts))
	dups := []DuplicateDraft{}

	for _, d := range drafts {
		dup := -1
		for i := range kept {
			if model.SameReview(d.UserName, d.Content, kept[i].UserName, kept[i].Content) {
				dup = i
				break
			}
		}
		if dup >= 0 {
			dups = append(dups, DuplicateDraft{Filename: d.SourceFilename, DuplicateOf: kept[dup].SourceFilename})
			continue
		}
		kept = append(kept, d)
	}
	return kept, dups
}

func (s *ingestService) publishProgress(batchID string, res imageResult, completed, total int) {
	event := ProgressEvent{
		Type:      EventImageDone,
		BatchID:   batchID,
		Filename:  res.filename,
		Completed: completed,
		Total:     total,
	}
	if res.err != nil {
		event.Type = EventImageFailed
		event.Error = res.err.Error()
	}
	s.publish(batchID, event)
}

func (s *ingestService) publish(batchID string, event ProgressEvent) {
	if s.publisher == nil || batchID == "" {
		return
	}
	if err := s.publisher.Publish(batchID, event); err != nil {
		logger.Warn("Failed to publish progress", map[string]interface{}{
			"batch_id": batchID,
			"error":    err.Error(),
		})
	}
}
