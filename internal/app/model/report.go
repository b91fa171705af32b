package model

import (
	"time"
)

// ReportLanguage 리포트 언어
type ReportLanguage string

const (
	LanguageEnglish ReportLanguage = "English"
	LanguageChinese ReportLanguage = "Chinese"
)

// IntelligenceReport AI 생성 리포트
type IntelligenceReport struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Language    ReportLanguage `gorm:"type:varchar(20);not null" json:"language"`
	RangeStart  time.Time      `gorm:"type:date" json:"-"`
	RangeEnd    time.Time      `gorm:"type:date" json:"-"`
	ReviewCount int            `gorm:"not null" json:"review_count"`

	// 감성 분포
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`

	Content     string    `gorm:"type:text;not null" json:"content"`
	GeneratedOn time.Time `gorm:"type:date" json:"-"`
}

func (IntelligenceReport) TableName() string {
	return "intelligence_reports"
}

// ReportResponse API 응답용 리포트
type ReportResponse struct {
	ID          uint           `json:"id"`
	Language    ReportLanguage `json:"language"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	ReviewCount int            `json:"review_count"`
	Positive    int            `json:"positive"`
	Neutral     int            `json:"neutral"`
	Negative    int            `json:"negative"`
	GeneratedOn string         `json:"generated_on"`
	Content     string         `json:"content"`
}

// ToResponse converts a stored report to its wire form.
func (r *IntelligenceReport) ToResponse() ReportResponse {
	return ReportResponse{
		ID:          r.ID,
		Language:    r.Language,
		StartDate:   r.RangeStart.Format(DateLayout),
		EndDate:     r.RangeEnd.Format(DateLayout),
		ReviewCount: r.ReviewCount,
		Positive:    r.Positive,
		Neutral:     r.Neutral,
		Negative:    r.Negative,
		GeneratedOn: r.GeneratedOn.Format(DateLayout),
		Content:     r.Content,
	}
}

// GenerateReportRequest 리포트 생성 요청
type GenerateReportRequest struct {
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Language  ReportLanguage `json:"language" binding:"omitempty,oneof=English Chinese"`
}
