package repository

import (
	"context"
	"errors"

	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	CreateIfNotDuplicate(ctx context.Context, review *model.Review) (bool, error)
	ExistsByUserAndContent(ctx context.Context, userName, content string) (bool, error)
	FindAll(ctx context.Context) ([]model.Review, error)
	FindByID(ctx context.Context, id uint) (*model.Review, error)
	Update(ctx context.Context, review *model.Review) error
	Delete(ctx context.Context, id uint) error
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create 리뷰 저장
func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		logger.Error("Failed to create review in database", err, map[string]interface{}{
			"source_filename": review.SourceFilename,
		})
		return err
	}

	logger.Debug("Review created in database", map[string]interface{}{
		"review_id":   review.ID,
		"review_date": review.ReviewDate.Format(model.DateLayout),
	})
	return nil
}

// CreateIfNotDuplicate 중복 확인 후 저장
// Returns false without writing when a review with the same non-null
// (user_name, content) pair already exists.
func (r *reviewRepository) CreateIfNotDuplicate(ctx context.Context, review *model.Review) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if review.UserName != nil && review.Content != nil {
			exists, err := existsByUserAndContent(tx, *review.UserName, *review.Content)
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
		}
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		logger.Error("Failed to insert review", err, map[string]interface{}{
			"source_filename": review.SourceFilename,
		})
		return false, err
	}
	return created, nil
}

// ExistsByUserAndContent 작성자+내용 중복 확인
func (r *reviewRepository) ExistsByUserAndContent(ctx context.Context, userName, content string) (bool, error) {
	return existsByUserAndContent(r.db.WithContext(ctx), userName, content)
}

func existsByUserAndContent(db *gorm.DB, userName, content string) (bool, error) {
	var count int64
	err := db.Model(&model.Review{}).
		Where("user_name = ? AND content = ?", userName, content).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll 전체 리뷰 조회 (최신 ID 순)
func (r *reviewRepository) FindAll(ctx context.Context) ([]model.Review, error) {
	var reviews []model.Review
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&reviews).Error; err != nil {
		logger.Error("Failed to fetch reviews", err)
		return nil, err
	}

	logger.Debug("Reviews fetched from database", map[string]interface{}{
		"count": len(reviews),
	})
	return reviews, nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id uint) (*model.Review, error) {
	var review model.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find review by ID", err, map[string]interface{}{
				"review_id": id,
			})
		}
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) Update(ctx context.Context, review *model.Review) error {
	if err := r.db.WithContext(ctx).Save(review).Error; err != nil {
		logger.Error("Failed to update review", err, map[string]interface{}{
			"review_id": review.ID,
		})
		return err
	}
	return nil
}

// Delete 리뷰 삭제. 없는 ID는 gorm.ErrRecordNotFound
func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Review{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete review", result.Error, map[string]interface{}{
			"review_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByIDs 리뷰 일괄 삭제
func (r *reviewRepository) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Review{})
	if result.Error != nil {
		logger.Error("Failed to bulk delete reviews", result.Error, map[string]interface{}{
			"count": len(ids),
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *reviewRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Review{}).Count(&count).Error
	return count, err
}
