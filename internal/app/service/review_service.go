package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ikkim/review-insight-backend/internal/analytics"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/app/repository"
	"github.com/ikkim/review-insight-backend/internal/cache"
	"github.com/ikkim/review-insight-backend/internal/metrics"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"github.com/ikkim/review-insight-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrReviewNotFound    = errors.New("review not found")
	ErrInvalidRating     = errors.New("rating must be between 0 and 5")
	ErrInvalidReviewDate = errors.New("review date is not a valid date")
	ErrNoReviewIDs       = errors.New("no review ids given")
	ErrExportFormat      = errors.New("unsupported export format")
)

// SaveResult 저장 결과
type SaveResult struct {
	Saved         int `json:"saved"`
	Skipped       int `json:"skipped"`
	DateFallbacks int `json:"date_fallbacks"`
}

// ReviewService 리뷰 저장/조회/수정 서비스
type ReviewService interface {
	ListReviews(ctx context.Context, req analytics.RangeRequest) ([]model.Review, error)
	GetReview(ctx context.Context, id uint) (*model.Review, error)
	UpdateReview(ctx context.Context, id uint, req *model.UpdateReviewRequest) (*model.Review, error)
	DeleteReview(ctx context.Context, id uint) error
	DeleteReviews(ctx context.Context, ids []uint) (int64, error)
	SaveReviews(ctx context.Context, drafts []model.ExtractedReview) (*SaveResult, error)
	ExportReviews(ctx context.Context, format ExportFormat) (*ExportFile, error)
	ImportReviews(ctx context.Context, r io.Reader) (*SaveResult, error)
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	snapshots  *cache.SnapshotCache
	dates      *util.ReviewDateParser
	metrics    *metrics.Metrics
}

// NewReviewService 리뷰 서비스 생성자. m may be nil.
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	snapshots *cache.SnapshotCache,
	dates *util.ReviewDateParser,
	m *metrics.Metrics,
) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		snapshots:  snapshots,
		dates:      dates,
		metrics:    m,
	}
}

// ListReviews 리뷰 목록 (id 내림차순). 범위가 없으면 전체
func (s *reviewService) ListReviews(ctx context.Context, req analytics.RangeRequest) ([]model.Review, error) {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		return nil, err
	}
	if req.Start == nil && req.End == nil {
		return snap.Reviews, nil
	}

	rng, ok := analytics.ResolveRange(snap.Reviews, req)
	if !ok {
		return []model.Review{}, nil
	}
	return analytics.FilterReviews(snap.Reviews, rng), nil
}

func (s *reviewService) GetReview(ctx context.Context, id uint) (*model.Review, error) {
	review, err := s.reviewRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

// UpdateReview 리뷰 직접 수정. 요청의 모든 필드로 교체 (nil은 null)
func (s *reviewService) UpdateReview(ctx context.Context, id uint, req *model.UpdateReviewRequest) (*model.Review, error) {
	review, err := s.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}

	ratings := []*float64{req.RatingOverall, req.RatingTaste, req.RatingEnv, req.RatingService, req.RatingValue}
	for _, r := range ratings {
		if !validRating(r) {
			return nil, ErrInvalidRating
		}
	}

	if req.ReviewDate != nil {
		date, fellBack := s.dates.Parse(*req.ReviewDate)
		if fellBack {
			return nil, ErrInvalidReviewDate
		}
		review.ReviewDate = date
	}

	review.UserName = trimmedOrNil(req.UserName)
	review.Content = trimmedOrNil(req.Content)
	review.RatingOverall = req.RatingOverall
	review.RatingTaste = req.RatingTaste
	review.RatingEnv = req.RatingEnv
	review.RatingService = req.RatingService
	review.RatingValue = req.RatingValue

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	s.snapshots.Invalidate()

	logger.Info("Review updated", map[string]interface{}{
		"review_id": review.ID,
	})
	return review, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, id uint) error {
	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewNotFound
		}
		return err
	}
	s.snapshots.Invalidate()

	logger.Info("Review deleted", map[string]interface{}{
		"review_id": id,
	})
	return nil
}

// DeleteReviews 여러 리뷰 삭제. 삭제된 행 수 반환
func (s *reviewService) DeleteReviews(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoReviewIDs
	}

	deleted, err := s.reviewRepo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.snapshots.Invalidate()
	}

	logger.Info("Reviews deleted", map[string]interface{}{
		"requested": len(ids),
		"deleted":   deleted,
	})
	return deleted, nil
}

// SaveReviews 확인된 초안 저장. 날짜 정규화 후 중복은 건너뜀
func (s *reviewService) SaveReviews(ctx context.Context, drafts []model.ExtractedReview) (*SaveResult, error) {
	result := &SaveResult{}
	defer func() {
		if result.Saved > 0 {
			s.snapshots.Invalidate()
		}
		s.metrics.RecordSave(result.Saved, result.Skipped)
	}()

	for i := range drafts {
		review, fellBack := s.toReview(&drafts[i])
		if fellBack {
			result.DateFallbacks++
		}

		created, err := s.reviewRepo.CreateIfNotDuplicate(ctx, review)
		if err != nil {
			return result, fmt.Errorf("failed to save review %d of %d: %w", i+1, len(drafts), err)
		}
		if created {
			result.Saved++
		} else {
			result.Skipped++
		}
	}

	logger.Info("Reviews saved", map[string]interface{}{
		"saved":          result.Saved,
		"skipped":        result.Skipped,
		"date_fallbacks": result.DateFallbacks,
	})
	return result, nil
}

// toReview 초안을 저장용 리뷰로 변환. 날짜를 해석할 수 없으면 오늘로 대체
func (s *reviewService) toReview(d *model.ExtractedReview) (*model.Review, bool) {
	raw := ""
	if d.ReviewDate != nil {
		raw = *d.ReviewDate
	}
	date, fellBack := s.dates.Parse(raw)
	if fellBack {
		logger.Warn("Could not parse review date, using today", map[string]interface{}{
			"raw_date":        raw,
			"source_filename": d.SourceFilename,
		})
	}

	return &model.Review{
		UserName:       trimmedOrNil(d.UserName),
		ReviewDate:     date,
		RatingOverall:  clampRating(d.RatingOverall),
		RatingTaste:    clampRating(d.RatingTaste),
		RatingEnv:      clampRating(d.RatingEnv),
		RatingService:  clampRating(d.RatingService),
		RatingValue:    clampRating(d.RatingValue),
		Content:        trimmedOrNil(d.Content),
		SourceFilename: d.SourceFilename,
		ImagePath:      d.ImagePath,
	}, fellBack
}

func validRating(r *float64) bool {
	return r == nil || (*r >= 0 && *r <= 5)
}

// clampRating drops out-of-range ratings rather than rejecting the review.
func clampRating(r *float64) *float64 {
	if !validRating(r) {
		return nil
	}
	return r
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
