package repository

import (
	"context"

	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReportRepository interface {
	Create(ctx context.Context, report *model.IntelligenceReport) error
	Latest(ctx context.Context) (*model.IntelligenceReport, error)
	List(ctx context.Context, offset, limit int) ([]model.IntelligenceReport, int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.IntelligenceReport) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		logger.Error("Failed to store intelligence report", err, map[string]interface{}{
			"language":     report.Language,
			"review_count": report.ReviewCount,
		})
		return err
	}
	return nil
}

// Latest 가장 최근 리포트. 없으면 gorm.ErrRecordNotFound
func (r *reportRepository) Latest(ctx context.Context) (*model.IntelligenceReport, error) {
	var report model.IntelligenceReport
	if err := r.db.WithContext(ctx).Order("id DESC").First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// List 리포트 이력 (최신순, 페이지)
func (r *reportRepository) List(ctx context.Context, offset, limit int) ([]model.IntelligenceReport, int64, error) {
	var reports []model.IntelligenceReport
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&model.IntelligenceReport{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		logger.Error("Failed to list intelligence reports", err)
		return nil, 0, err
	}

	return reports, total, nil
}
