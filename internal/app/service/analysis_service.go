package service

import (
	"context"
	"time"

	"github.com/ikkim/review-insight-backend/internal/analytics"
	"github.com/ikkim/review-insight-backend/internal/cache"
)

// DailySeriesResult 일별 통계 응답
type DailySeriesResult struct {
	Range analytics.DateRange   `json:"range"`
	Daily []analytics.DailyStat `json:"daily"`
}

// SentimentResult 감성 요약 응답
type SentimentResult struct {
	Range analytics.DateRange      `json:"range"`
	Stats analytics.SentimentStats `json:"stats"`
}

// AnalysisService 대시보드/추세 분석 서비스
type AnalysisService interface {
	Dashboard(ctx context.Context, req analytics.RangeRequest) (*analytics.Dashboard, error)
	DailySeries(ctx context.Context, req analytics.RangeRequest) (*DailySeriesResult, error)
	Sentiment(ctx context.Context, req analytics.RangeRequest) (*SentimentResult, error)
}

type analysisService struct {
	snapshots *cache.SnapshotCache
	now       func() time.Time
}

// NewAnalysisService 분석 서비스 생성자
func NewAnalysisService(snapshots *cache.SnapshotCache) AnalysisService {
	return &analysisService{
		snapshots: snapshots,
		now:       time.Now,
	}
}

// Dashboard 상단 지표, 일별 통계, 감성 분포
func (s *analysisService) Dashboard(ctx context.Context, req analytics.RangeRequest) (*analytics.Dashboard, error) {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		return nil, err
	}
	dash := analytics.BuildDashboard(snap.Reviews, req, s.now())
	return &dash, nil
}

// DailySeries 전체 이력으로 계산한 뒤 범위로 자른 일별 통계
func (s *analysisService) DailySeries(ctx context.Context, req analytics.RangeRequest) (*DailySeriesResult, error) {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		return nil, err
	}

	rng, ok := analytics.ResolveRange(snap.Reviews, req)
	if !ok {
		return &DailySeriesResult{Daily: []analytics.DailyStat{}}, nil
	}
	return &DailySeriesResult{
		Range: rng,
		Daily: analytics.FilterDailyStats(analytics.DailySeries(snap.Reviews), rng),
	}, nil
}

func (s *analysisService) Sentiment(ctx context.Context, req analytics.RangeRequest) (*SentimentResult, error) {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		return nil, err
	}

	rng, ok := analytics.ResolveRange(snap.Reviews, req)
	if !ok {
		return &SentimentResult{}, nil
	}
	return &SentimentResult{
		Range: rng,
		Stats: analytics.SummarizeSentiment(analytics.FilterReviews(snap.Reviews, rng)),
	}, nil
}
