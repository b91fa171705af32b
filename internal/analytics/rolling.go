package analytics

import (
	"sort"

	"github.com/ikkim/review-insight-backend/internal/app/model"
)

// WindowSize is the length of both rolling windows: 7 calendar days for the
// volume count, 7 individual reviews for the rating averages.
const WindowSize = 7

// ApplyRollingWindows returns a copy of stats with Rolling7dCount and
// MovingAvg filled in. stats must be the gap-filled output of Aggregate for
// the same reviews.
//
// The two windows are deliberately different. Rolling7dCount sums
// DailyCount over the trailing 7 days, zero-review days included.
// MovingAvg is the mean over the trailing 7 reviews ordered by date, taken
// as of the last review on or before each day and carried forward across
// days that have no new value.
func ApplyRollingWindows(stats []DailyStat, reviews []model.Review) []DailyStat {
	out := make([]DailyStat, len(stats))
	copy(out, stats)

	sum := 0
	for i := range out {
		sum += out[i].DailyCount
		if i >= WindowSize {
			sum -= out[i-WindowSize].DailyCount
		}
		out[i].Rolling7dCount = sum
	}

	ordered := orderByDate(reviews)
	moving := reviewMovingAverages(ordered)

	var carried DimensionValues
	j := 0
	for i := range out {
		for j < len(ordered) && !DateOf(ordered[j].ReviewDate).After(out[i].Date) {
			for _, dim := range model.RatingDimensions {
				if v := moving[j].Get(dim); v != nil {
					carried.Set(dim, v)
				}
			}
			j++
		}
		out[i].MovingAvg = carried.clone()
	}
	return out
}

// orderByDate sorts a copy of reviews by date, keeping insertion (id) order
// within a day.
func orderByDate(reviews []model.Review) []model.Review {
	ordered := make([]model.Review, len(reviews))
	copy(ordered, reviews)
	sort.SliceStable(ordered, func(a, b int) bool {
		da, db := DateOf(ordered[a].ReviewDate), DateOf(ordered[b].ReviewDate)
		if !da.Equal(db) {
			return da.Before(db)
		}
		return ordered[a].ID < ordered[b].ID
	})
	return ordered
}

// reviewMovingAverages computes, for every review, the mean of each
// dimension over itself and the six reviews before it. Nulls are skipped;
// a window with no values yields nil.
func reviewMovingAverages(ordered []model.Review) []DimensionValues {
	out := make([]DimensionValues, len(ordered))
	for _, dim := range model.RatingDimensions {
		sum, n := 0.0, 0
		for j := range ordered {
			if v := ordered[j].Rating(dim); v != nil {
				sum += *v
				n++
			}
			if j >= WindowSize {
				if v := ordered[j-WindowSize].Rating(dim); v != nil {
					sum -= *v
					n--
				}
			}
			if n > 0 {
				mean := sum / float64(n)
				out[j].Set(dim, &mean)
			}
		}
	}
	return out
}
