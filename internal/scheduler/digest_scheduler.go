package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/review-insight-backend/internal/analytics"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/app/service"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const digestTimeout = time.Minute

// Digest 최근 7일 요약
type Digest struct {
	Range     analytics.DateRange      `json:"range"`
	Metrics   analytics.ToplineMetrics `json:"metrics"`
	Sentiment analytics.SentimentStats `json:"sentiment"`
}

// DigestScheduler 일일 리뷰 요약 스케줄러. 실행 시 스냅샷 캐시도 미리 채움
type DigestScheduler struct {
	cron     *cron.Cron
	spec     string
	analysis service.AnalysisService
	now      func() time.Time
}

// NewDigestScheduler 요약 스케줄러 생성
func NewDigestScheduler(analysis service.AnalysisService, spec string) *DigestScheduler {
	return &DigestScheduler{
		cron:     cron.New(),
		spec:     spec,
		analysis: analysis,
		now:      time.Now,
	}
}

// Start 스케줄러 시작
func (s *DigestScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
		defer cancel()

		if _, err := s.RunDigest(ctx); err != nil {
			logger.Error("Failed to build scheduled review digest", err)
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for review digest", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Review digest scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// Stop 스케줄러 중지. 실행 중인 작업이 끝날 때까지 대기
func (s *DigestScheduler) Stop() {
	logger.Info("Stopping review digest scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Review digest scheduler stopped")
}

// RunDigest 최근 7일 (오늘 포함) 요약 생성 후 로그 기록
func (s *DigestScheduler) RunDigest(ctx context.Context) (*Digest, error) {
	today := analytics.DateOf(s.now())
	start := today.AddDate(0, 0, -analytics.RecentWindowDays)

	dash, err := s.analysis.Dashboard(ctx, analytics.RangeRequest{Start: &start, End: &today})
	if err != nil {
		return nil, err
	}

	digest := &Digest{
		Range:     dash.Range,
		Metrics:   dash.Metrics,
		Sentiment: dash.SentimentSummary,
	}

	fields := map[string]interface{}{
		"start_date":  digest.Range.Start.Format(model.DateLayout),
		"end_date":    digest.Range.End.Format(model.DateLayout),
		"new_reviews": digest.Metrics.NewReviews7d,
		"positive":    digest.Sentiment.Positive,
		"neutral":     digest.Sentiment.Neutral,
		"negative":    digest.Sentiment.Negative,
	}
	if digest.Metrics.AvgRating7d != nil {
		fields["avg_rating"] = *digest.Metrics.AvgRating7d
	}
	logger.Info("Review digest", fields)

	return digest, nil
}
