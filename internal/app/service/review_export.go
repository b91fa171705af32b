package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ikkim/review-insight-backend/internal/analytics"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
)

// ExportFormat 내보내기 형식
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ExportFile 내보낸 파일
type ExportFile struct {
	Data        []byte
	ContentType string
	Filename    string
}

const reviewSheetName = "Reviews"

// reviewColumns is the export layout; ImportReviews reads the same header.
var reviewColumns = []string{
	"id",
	"user_name",
	"review_date",
	"rating_overall",
	"rating_taste",
	"rating_env",
	"rating_service",
	"rating_value",
	"content",
	"source_filename",
	"image_path",
}

func reviewRow(r *model.Review) []string {
	return []string{
		strconv.FormatUint(uint64(r.ID), 10),
		deref(r.UserName),
		r.ReviewDate.Format(model.DateLayout),
		formatRating(r.RatingOverall),
		formatRating(r.RatingTaste),
		formatRating(r.RatingEnv),
		formatRating(r.RatingService),
		formatRating(r.RatingValue),
		deref(r.Content),
		r.SourceFilename,
		r.ImagePath,
	}
}

// ExportReviews 전체 리뷰 테이블 내보내기
func (s *reviewService) ExportReviews(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	reviews, err := s.ListReviews(ctx, analytics.RangeRequest{})
	if err != nil {
		return nil, err
	}

	stamp := time.Now().Format("20060102")
	var file *ExportFile
	switch format {
	case ExportCSV, "":
		data, err := writeReviewsCSV(reviews)
		if err != nil {
			return nil, err
		}
		file = &ExportFile{
			Data:        data,
			ContentType: "text/csv; charset=utf-8",
			Filename:    fmt.Sprintf("reviews-%s.csv", stamp),
		}
	case ExportXLSX:
		data, err := writeReviewsXLSX(reviews)
		if err != nil {
			return nil, err
		}
		file = &ExportFile{
			Data:        data,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Filename:    fmt.Sprintf("reviews-%s.xlsx", stamp),
		}
	default:
		return nil, ErrExportFormat
	}

	logger.Info("Reviews exported", map[string]interface{}{
		"format": string(format),
		"rows":   len(reviews),
	})
	return file, nil
}

func writeReviewsCSV(reviews []model.Review) ([]byte, error) {
	var buf bytes.Buffer
	// UTF-8 BOM so spreadsheet apps detect the encoding of CJK content
	buf.WriteString("\ufeff")

	w := csv.NewWriter(&buf)
	if err := w.Write(reviewColumns); err != nil {
		return nil, err
	}
	for i := range reviews {
		if err := w.Write(reviewRow(&reviews[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func writeReviewsXLSX(reviews []model.Review) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), reviewSheetName); err != nil {
		return nil, err
	}

	sw, err := f.NewStreamWriter(reviewSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]interface{}, len(reviewColumns))
	for i, c := range reviewColumns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}

	for i := range reviews {
		r := &reviews[i]
		row := []interface{}{
			r.ID,
			deref(r.UserName),
			r.ReviewDate.Format(model.DateLayout),
			ratingCell(r.RatingOverall),
			ratingCell(r.RatingTaste),
			ratingCell(r.RatingEnv),
			ratingCell(r.RatingService),
			ratingCell(r.RatingValue),
			deref(r.Content),
			r.SourceFilename,
			r.ImagePath,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportReviews 내보내기 형식의 XLSX 파일에서 리뷰 가져오기
func (s *reviewService) ImportReviews(ctx context.Context, r io.Reader) (*SaveResult, error) {
	drafts, err := ReadReviewsXLSX(r)
	if err != nil {
		return nil, err
	}
	return s.SaveReviews(ctx, drafts)
}

// ReadReviewsXLSX parses the first sheet. Columns are matched by header
// name, so the id column and column order are optional.
func ReadReviewsXLSX(r io.Reader) ([]model.ExtractedReview, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := index["review_date"]; !ok {
		return nil, fmt.Errorf("missing review_date column")
	}

	cell := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var drafts []model.ExtractedReview
	for _, row := range rows[1:] {
		if len(strings.Join(row, "")) == 0 {
			continue
		}
		drafts = append(drafts, model.ExtractedReview{
			UserName:       optionalString(cell(row, "user_name")),
			ReviewDate:     optionalString(cell(row, "review_date")),
			RatingOverall:  optionalRating(cell(row, "rating_overall")),
			RatingTaste:    optionalRating(cell(row, "rating_taste")),
			RatingEnv:      optionalRating(cell(row, "rating_env")),
			RatingService:  optionalRating(cell(row, "rating_service")),
			RatingValue:    optionalRating(cell(row, "rating_value")),
			Content:        optionalString(cell(row, "content")),
			SourceFilename: cell(row, "source_filename"),
			ImagePath:      cell(row, "image_path"),
		})
	}
	return drafts, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatRating(r *float64) string {
	if r == nil {
		return ""
	}
	return cast.ToString(*r)
}

// ratingCell leaves the cell blank for a missing rating.
func ratingCell(r *float64) interface{} {
	if r == nil {
		return ""
	}
	return *r
}
