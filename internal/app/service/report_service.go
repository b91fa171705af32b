package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/review-insight-backend/internal/analytics"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/app/repository"
	"github.com/ikkim/review-insight-backend/internal/cache"
	"github.com/ikkim/review-insight-backend/internal/metrics"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"github.com/ikkim/review-insight-backend/pkg/redis"
	"gorm.io/gorm"
)

var (
	ErrReportInProgress = errors.New("a report is already being generated")
	ErrNoReviewsInRange = errors.New("no reviews in the selected range")
	ErrReportNotFound   = errors.New("no report has been generated")
)

const (
	reportLockKey = "report:generate"
	reportLockTTL = 10 * time.Minute
)

// ReportLocker serializes report generation. *redis.Locker satisfies it.
type ReportLocker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) error
	Release(ctx context.Context, key, token string) error
}

// GenerateReportInput 리포트 생성 입력
type GenerateReportInput struct {
	Range    analytics.RangeRequest
	Language model.ReportLanguage
}

// ReportService 인텔리전스 리포트 서비스
type ReportService interface {
	GenerateReport(ctx context.Context, input GenerateReportInput, onChunk func(string) error) (*model.IntelligenceReport, error)
	LatestReport(ctx context.Context) (*model.IntelligenceReport, error)
	ListReports(ctx context.Context, page, pageSize int) ([]model.IntelligenceReport, int64, error)
}

type reportService struct {
	ai         AIService
	reportRepo repository.ReportRepository
	snapshots  *cache.SnapshotCache
	locker     ReportLocker
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewReportService 리포트 서비스 생성자. m may be nil.
func NewReportService(
	ai AIService,
	reportRepo repository.ReportRepository,
	snapshots *cache.SnapshotCache,
	locker ReportLocker,
	m *metrics.Metrics,
) ReportService {
	return &reportService{
		ai:         ai,
		reportRepo: reportRepo,
		snapshots:  snapshots,
		locker:     locker,
		metrics:    m,
		now:        time.Now,
	}
}

// GenerateReport 범위 내 리뷰로 리포트 생성. 생성 중 청크를 onChunk로 전달하고
// 완료되면 저장
func (s *reportService) GenerateReport(ctx context.Context, input GenerateReportInput, onChunk func(string) error) (*model.IntelligenceReport, error) {
	lang := input.Language
	if lang == "" {
		lang = model.LanguageEnglish
	}

	token := uuid.NewString()
	if err := s.locker.Acquire(ctx, reportLockKey, token, reportLockTTL); err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			return nil, ErrReportInProgress
		}
		return nil, err
	}
	defer func() {
		// ctx may already be canceled by a disconnected client
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.locker.Release(releaseCtx, reportLockKey, token)
	}()

	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		return nil, err
	}
	rng, ok := analytics.ResolveRange(snap.Reviews, input.Range)
	if !ok {
		return nil, ErrNoReviewsInRange
	}
	reviews := analytics.FilterReviews(snap.Reviews, rng)
	if len(reviews) == 0 {
		return nil, ErrNoReviewsInRange
	}
	stats := analytics.SummarizeSentiment(reviews)

	logger.Info("Report generation started", map[string]interface{}{
		"language":   string(lang),
		"reviews":    len(reviews),
		"start_date": rng.Start.Format(model.DateLayout),
		"end_date":   rng.End.Format(model.DateLayout),
	})

	start := s.now()
	content, err := s.ai.StreamReport(ctx, ReportInput{
		Language: lang,
		Reviews:  reviews,
		Stats:    stats,
	}, onChunk)
	if err != nil {
		s.metrics.RecordReport(string(lang), "error", s.now().Sub(start))
		logger.Error("Report generation failed", err, map[string]interface{}{
			"language": string(lang),
		})
		return nil, err
	}

	span, _ := analytics.DataSpan(reviews)
	report := &model.IntelligenceReport{
		Language:    lang,
		RangeStart:  span.Start,
		RangeEnd:    span.End,
		ReviewCount: stats.Total,
		Positive:    stats.Positive,
		Neutral:     stats.Neutral,
		Negative:    stats.Negative,
		Content:     content,
		GeneratedOn: analytics.DateOf(s.now()),
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		s.metrics.RecordReport(string(lang), "error", s.now().Sub(start))
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	s.metrics.RecordReport(string(lang), "ok", s.now().Sub(start))
	logger.Info("Report generated", map[string]interface{}{
		"report_id": report.ID,
		"language":  string(lang),
		"chars":     len(content),
	})
	return report, nil
}

func (s *reportService) LatestReport(ctx context.Context) (*model.IntelligenceReport, error) {
	report, err := s.reportRepo.Latest(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

// ListReports 리포트 이력 (최신순)
func (s *reportService) ListReports(ctx context.Context, page, pageSize int) ([]model.IntelligenceReport, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.reportRepo.List(ctx, (page-1)*pageSize, pageSize)
}

// localLocker is the single-process fallback when Redis is disabled.
type localLocker struct {
	mu    sync.Mutex
	held  map[string]localLock
	clock func() time.Time
}

type localLock struct {
	token   string
	expires time.Time
}

// NewLocalLocker creates an in-memory ReportLocker.
func NewLocalLocker() ReportLocker {
	return &localLocker{
		held:  make(map[string]localLock),
		clock: time.Now,
	}
}

func (l *localLocker) Acquire(_ context.Context, key, token string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if lock, ok := l.held[key]; ok && now.Before(lock.expires) {
		return redis.ErrLockHeld
	}
	l.held[key] = localLock{token: token, expires: now.Add(ttl)}
	return nil
}

func (l *localLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lock, ok := l.held[key]; ok && lock.token == token {
		delete(l.held, key)
	}
	return nil
}
