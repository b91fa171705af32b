package analytics

import (
	"github.com/ikkim/review-insight-backend/internal/app/model"
)

// FilterDailyStats keeps the days inside r. Apply it after
// ApplyRollingWindows so windows near the boundary see the full history.
func FilterDailyStats(stats []DailyStat, r DateRange) []DailyStat {
	out := []DailyStat{}
	if r.Empty() {
		return out
	}
	for _, s := range stats {
		if r.Contains(s.Date) {
			out = append(out, s)
		}
	}
	return out
}

// FilterReviews keeps the reviews dated inside r, preserving order.
func FilterReviews(reviews []model.Review, r DateRange) []model.Review {
	out := []model.Review{}
	if r.Empty() {
		return out
	}
	for _, rv := range reviews {
		if r.Contains(rv.ReviewDate) {
			out = append(out, rv)
		}
	}
	return out
}
