package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ikkim/review-insight-backend/internal/analytics"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/app/repository"
	"github.com/ikkim/review-insight-backend/internal/cache"
	"github.com/ikkim/review-insight-backend/internal/db"
	"github.com/ikkim/review-insight-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testToday = time.Date(2026, 1, 10, 15, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func setupReviewService(t *testing.T) (ReviewService, repository.ReviewRepository, *cache.SnapshotCache) {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	repo := repository.NewReviewRepository(testDB)
	snapshots := cache.NewSnapshotCache(time.Minute, repo.FindAll, nil)
	dates := &util.ReviewDateParser{DefaultYear: 2025, Now: func() time.Time { return testToday }}
	return NewReviewService(repo, snapshots, dates, nil), repo, snapshots
}

func draft(user, content, date string, rating float64) model.ExtractedReview {
	d := model.ExtractedReview{RatingOverall: floatPtr(rating), SourceFilename: "shot.png"}
	if user != "" {
		d.UserName = strPtr(user)
	}
	if content != "" {
		d.Content = strPtr(content)
	}
	if date != "" {
		d.ReviewDate = strPtr(date)
	}
	return d
}

func TestReviewService_SaveReviews(t *testing.T) {
	svc, _, _ := setupReviewService(t)
	ctx := context.Background()

	result, err := svc.SaveReviews(ctx, []model.ExtractedReview{
		draft("Amy", "Great tea", "12/30", 5),
		draft("Ben", "Too sweet", "2026-01-02", 3),
		draft("Cat", "Okay", "sometime last week", 4),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Saved)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.DateFallbacks)

	reviews, err := svc.ListReviews(ctx, analytics.RangeRequest{})
	require.NoError(t, err)
	require.Len(t, reviews, 3)

	dates := map[string]string{}
	for _, r := range reviews {
		dates[*r.UserName] = r.ReviewDate.Format(model.DateLayout)
	}
	assert.Equal(t, "2025-12-30", dates["Amy"])
	assert.Equal(t, "2026-01-02", dates["Ben"])
	assert.Equal(t, "2026-01-10", dates["Cat"])
}

func TestReviewService_SaveReviews_SkipsDuplicates(t *testing.T) {
	svc, _, _ := setupReviewService(t)
	ctx := context.Background()

	_, err := svc.SaveReviews(ctx, []model.ExtractedReview{draft("Amy", "Great tea", "2026-01-01", 5)})
	require.NoError(t, err)

	// same user and content with a different date and rating is still a duplicate
	result, err := svc.SaveReviews(ctx, []model.ExtractedReview{
		draft("Amy", "Great tea", "2026-01-05", 2),
		draft("Amy", "Great tea, again", "2026-01-05", 4),
		draft("", "Great tea", "2026-01-05", 4),
		draft("", "Great tea", "2026-01-05", 4),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Saved)
	assert.Equal(t, 1, result.Skipped)
}

func TestReviewService_SaveReviews_InvalidatesSnapshot(t *testing.T) {
	svc, _, snapshots := setupReviewService(t)
	ctx := context.Background()

	reviews, err := svc.ListReviews(ctx, analytics.RangeRequest{})
	require.NoError(t, err)
	assert.Empty(t, reviews)
	_, cached := snapshots.FetchedAt()
	assert.True(t, cached)

	_, err = svc.SaveReviews(ctx, []model.ExtractedReview{draft("Amy", "Great tea", "2026-01-01", 5)})
	require.NoError(t, err)

	_, cached = snapshots.FetchedAt()
	assert.False(t, cached)
	reviews, err = svc.ListReviews(ctx, analytics.RangeRequest{})
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestReviewService_SaveReviews_DropsOutOfRangeRatings(t *testing.T) {
	svc, _, _ := setupReviewService(t)
	ctx := context.Background()

	d := draft("Amy", "Great tea", "2026-01-01", 7)
	d.RatingTaste = floatPtr(4)
	_, err := svc.SaveReviews(ctx, []model.ExtractedReview{d})
	require.NoError(t, err)

	reviews, err := svc.ListReviews(ctx, analytics.RangeRequest{})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Nil(t, reviews[0].RatingOverall)
	assert.InDelta(t, 4.0, *reviews[0].RatingTaste, 1e-9)
}

func TestReviewService_ListReviews_Range(t *testing.T) {
	svc, _, _ := setupReviewService(t)
	ctx := context.Background()

	_, err := svc.SaveReviews(ctx, []model.ExtractedReview{
		draft("Amy", "a", "2026-01-01", 5),
		draft("Ben", "b", "2026-01-03", 4),
		draft("Cat", "c", "2026-01-05", 3),
	})
	require.NoError(t, err)

	start, end := day("2026-01-02"), day("2026-01-05")
	reviews, err := svc.ListReviews(ctx, analytics.RangeRequest{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	// id DESC
	assert.Equal(t, "Cat", *reviews[0].UserName)
	assert.Equal(t, "Ben", *reviews[1].UserName)

	start, end = day("2026-01-05"), day("2026-01-01")
	reviews, err = svc.ListReviews(ctx, analytics.RangeRequest{Start: &start, End: &end})
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestReviewService_UpdateReview(t *testing.T) {
	svc, _, _ := setupReviewService(t)
	ctx := context.Background()

	_, err := svc.SaveReviews(ctx, []model.ExtractedReview{draft("Amy", "Great tea", "2026-01-01", 5)})
	require.NoError(t, err)
	reviews, err := svc.ListReviews(ctx, analytics.RangeRequest{})
	require.NoError(t, err)
	id := reviews[0].ID

	updated, err := svc.UpdateReview(ctx, id, &model.UpdateReviewRequest{
		UserName:      strPtr(" Amy W "),
		ReviewDate:    strPtr("2026-01-04"),
		RatingOverall: floatPtr(3.5),
		Content:       strPtr("Great tea, slow service"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Amy W", *updated.UserName)
	assert.Equal(t, "2026-01-04", updated.ReviewDate.Format(model.DateLayout))

	got, err := svc.GetReview(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, *got.RatingOverall, 1e-9)
	assert.Equal(t, "Great tea, slow service", *got.Content)

	// the snapshot sees the edit
	reviews, err = svc.ListReviews(ctx, analytics.RangeRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Amy W", *reviews[0].UserName)
}

func TestReviewService_UpdateReview_Errors(t *testing.T) {
	svc, _, _ := setupReviewService(t)
	ctx := context.Background()

	_, err := svc.SaveReviews(ctx, []model.ExtractedReview{draft("Amy", "Great tea", "2026-01-01", 5)})
	require.NoError(t, err)
	reviews, _ := svc.ListReviews(ctx, analytics.RangeRequest{})
	id := reviews[0].ID

	_, err = svc.UpdateReview(ctx, id, &model.UpdateReviewRequest{ReviewDate: strPtr("not a date")})
	assert.ErrorIs(t, err, ErrInvalidReviewDate)

	_, err = svc.UpdateReview(ctx, id, &model.UpdateReviewRequest{RatingService: floatPtr(5.5)})
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = svc.UpdateReview(ctx, 999, &model.UpdateReviewRequest{})
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestReviewService_Delete(t *testing.T) {
	svc, _, _ := setupReviewService(t)
	ctx := context.Background()

	_, err := svc.SaveReviews(ctx, []model.ExtractedReview{
		draft("Amy", "a", "2026-01-01", 5),
		draft("Ben", "b", "2026-01-02", 4),
		draft("Cat", "c", "2026-01-03", 3),
	})
	require.NoError(t, err)
	reviews, _ := svc.ListReviews(ctx, analytics.RangeRequest{})
	require.Len(t, reviews, 3)

	require.NoError(t, svc.DeleteReview(ctx, reviews[0].ID))
	assert.ErrorIs(t, svc.DeleteReview(ctx, reviews[0].ID), ErrReviewNotFound)

	deleted, err := svc.DeleteReviews(ctx, []uint{reviews[1].ID, reviews[2].ID, 999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = svc.DeleteReviews(ctx, nil)
	assert.ErrorIs(t, err, ErrNoReviewIDs)

	reviews, err = svc.ListReviews(ctx, analytics.RangeRequest{})
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestReviewService_ExportCSV(t *testing.T) {
	svc, _, _ := setupReviewService(t)
	ctx := context.Background()

	d := draft("Amy", "Tea, \"very\" good", "2026-01-01", 4.5)
	_, err := svc.SaveReviews(ctx, []model.ExtractedReview{d, draft("Ben", "", "2026-01-02", 3)})
	require.NoError(t, err)

	file, err := svc.ExportReviews(ctx, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	text := string(file.Data)
	assert.True(t, strings.HasPrefix(text, "\ufeffid,user_name,review_date,"))
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Ben,2026-01-02,3,,,,,")
	assert.Contains(t, lines[2], `Amy,2026-01-01,4.5,,,,,"Tea, ""very"" good"`)
}

func TestReviewService_ExportXLSX_ImportRoundTrip(t *testing.T) {
	svc, _, _ := setupReviewService(t)
	ctx := context.Background()

	source := draft("Amy", "Great tea", "2026-01-01", 4.5)
	source.RatingValue = floatPtr(3)
	_, err := svc.SaveReviews(ctx, []model.ExtractedReview{source, draft("Ben", "Too sweet", "2026-01-02", 2)})
	require.NoError(t, err)

	file, err := svc.ExportReviews(ctx, ExportXLSX)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Filename, ".xlsx"))

	drafts, err := ReadReviewsXLSX(bytes.NewReader(file.Data))
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	// export is id DESC
	assert.Equal(t, "Ben", *drafts[0].UserName)
	assert.Equal(t, "2026-01-01", *drafts[1].ReviewDate)
	assert.InDelta(t, 4.5, *drafts[1].RatingOverall, 1e-9)
	assert.InDelta(t, 3.0, *drafts[1].RatingValue, 1e-9)
	assert.Nil(t, drafts[1].RatingTaste)

	// importing the export back is a no-op
	result, err := svc.ImportReviews(ctx, bytes.NewReader(file.Data))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Saved)
	assert.Equal(t, 2, result.Skipped)
}

func TestReviewService_ExportUnknownFormat(t *testing.T) {
	svc, _, _ := setupReviewService(t)

	_, err := svc.ExportReviews(context.Background(), ExportFormat("pdf"))
	assert.ErrorIs(t, err, ErrExportFormat)
}
