package model

import (
	"time"
)

// DateLayout is the wire and display format of calendar dates.
const DateLayout = "2006-01-02"

// RatingDimension 평점 항목
type RatingDimension string

const (
	DimensionOverall RatingDimension = "overall"
	DimensionTaste   RatingDimension = "taste"
	DimensionEnv     RatingDimension = "env"
	DimensionService RatingDimension = "service"
	DimensionValue   RatingDimension = "value"
)

// RatingDimensions lists every dimension in display order.
var RatingDimensions = []RatingDimension{
	DimensionOverall,
	DimensionTaste,
	DimensionEnv,
	DimensionService,
	DimensionValue,
}

// Review 고객 리뷰 (스크린샷에서 추출 후 저장)
type Review struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserName   *string   `gorm:"type:varchar(255);index:idx_reviews_user_content" json:"user_name"`
	ReviewDate time.Time `gorm:"type:date;not null;index" json:"review_date"`

	RatingOverall *float64 `json:"rating_overall"`
	RatingTaste   *float64 `json:"rating_taste"`
	RatingEnv     *float64 `json:"rating_env"`
	RatingService *float64 `json:"rating_service"`
	RatingValue   *float64 `json:"rating_value"`

	Content *string `gorm:"type:text" json:"content"`

	// 출처 정보
	SourceFilename string `gorm:"type:varchar(255)" json:"source_filename"`
	ImagePath      string `gorm:"type:text" json:"image_path"`
}

func (Review) TableName() string {
	return "reviews"
}

// Rating returns the rating for one dimension, nil when absent.
func (r *Review) Rating(dim RatingDimension) *float64 {
	switch dim {
	case DimensionOverall:
		return r.RatingOverall
	case DimensionTaste:
		return r.RatingTaste
	case DimensionEnv:
		return r.RatingEnv
	case DimensionService:
		return r.RatingService
	case DimensionValue:
		return r.RatingValue
	}
	return nil
}

// SameReview reports whether two (user_name, content) pairs identify the same
// review. Only equal non-null pairs match.
func SameReview(userA, contentA, userB, contentB *string) bool {
	if userA == nil || contentA == nil || userB == nil || contentB == nil {
		return false
	}
	return *userA == *userB && *contentA == *contentB
}

// ReviewResponse API 응답용 리뷰
type ReviewResponse struct {
	ID             uint     `json:"id"`
	UserName       *string  `json:"user_name"`
	ReviewDate     string   `json:"review_date"`
	RatingOverall  *float64 `json:"rating_overall"`
	RatingTaste    *float64 `json:"rating_taste"`
	RatingEnv      *float64 `json:"rating_env"`
	RatingService  *float64 `json:"rating_service"`
	RatingValue    *float64 `json:"rating_value"`
	Content        *string  `json:"content"`
	SourceFilename string   `json:"source_filename"`
	ImagePath      string   `json:"image_path"`
}

// ToResponse converts a stored review to its wire form.
func (r *Review) ToResponse() ReviewResponse {
	return ReviewResponse{
		ID:             r.ID,
		UserName:       r.UserName,
		ReviewDate:     r.ReviewDate.Format(DateLayout),
		RatingOverall:  r.RatingOverall,
		RatingTaste:    r.RatingTaste,
		RatingEnv:      r.RatingEnv,
		RatingService:  r.RatingService,
		RatingValue:    r.RatingValue,
		Content:        r.Content,
		SourceFilename: r.SourceFilename,
		ImagePath:      r.ImagePath,
	}
}

// ExtractedReview 추출된 리뷰 초안 (사용자 확인 전)
// ReviewDate is kept as the raw string returned by the model until save time.
type ExtractedReview struct {
	UserName       *string  `json:"user_name"`
	ReviewDate     *string  `json:"review_date"`
	RatingOverall  *float64 `json:"rating_overall"`
	RatingTaste    *float64 `json:"rating_taste"`
	RatingEnv      *float64 `json:"rating_env"`
	RatingService  *float64 `json:"rating_service"`
	RatingValue    *float64 `json:"rating_value"`
	Content        *string  `json:"content"`
	SourceFilename string   `json:"source_filename"`
	ImagePath      string   `json:"image_path"`
}

// UpdateReviewRequest 리뷰 직접 수정 요청
type UpdateReviewRequest struct {
	UserName      *string  `json:"user_name"`
	ReviewDate    *string  `json:"review_date"`
	RatingOverall *float64 `json:"rating_overall" binding:"omitempty,gte=0,lte=5"`
	RatingTaste   *float64 `json:"rating_taste" binding:"omitempty,gte=0,lte=5"`
	RatingEnv     *float64 `json:"rating_env" binding:"omitempty,gte=0,lte=5"`
	RatingService *float64 `json:"rating_service" binding:"omitempty,gte=0,lte=5"`
	RatingValue   *float64 `json:"rating_value" binding:"omitempty,gte=0,lte=5"`
	Content       *string  `json:"content"`
}
