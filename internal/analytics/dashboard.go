package analytics

import (
	"time"

	"github.com/ikkim/review-insight-backend/internal/app/model"
)

// RecentWindowDays is the lookback of the "last 7 days" topline figures.
// The window is [today-7, today], both ends included.
const RecentWindowDays = 7

// ToplineMetrics are the headline numbers above the charts.
type ToplineMetrics struct {
	TotalReviews int      `json:"total_reviews"`
	NewReviews7d int      `json:"new_reviews_7d"`
	AvgRating    *float64 `json:"avg_rating"`
	AvgRating7d  *float64 `json:"avg_rating_7d"`
}

// ComputeTopline derives range totals from inRange and the recent-window
// figures from the full review set.
func ComputeTopline(all, inRange []model.Review, today time.Time) ToplineMetrics {
	end := DateOf(today)
	recent := FilterReviews(all, DateRange{Start: end.AddDate(0, 0, -RecentWindowDays), End: end})

	return ToplineMetrics{
		TotalReviews: len(inRange),
		NewReviews7d: len(recent),
		AvgRating:    meanRating(inRange, model.DimensionOverall),
		AvgRating7d:  meanRating(recent, model.DimensionOverall),
	}
}

func meanRating(reviews []model.Review, dim model.RatingDimension) *float64 {
	sum, n := 0.0, 0
	for i := range reviews {
		if v := reviews[i].Rating(dim); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// Dashboard is everything the analysis view renders for one selection.
type Dashboard struct {
	Range            DateRange        `json:"range"`
	HasData          bool             `json:"has_data"`
	Metrics          ToplineMetrics   `json:"metrics"`
	Daily            []DailyStat      `json:"daily"`
	Sentiment        []DailySentiment `json:"sentiment"`
	SentimentSummary SentimentStats   `json:"sentiment_summary"`
}

// DailySeries runs aggregation and both rolling windows over the full
// review set. The result is unfiltered.
func DailySeries(reviews []model.Review) []DailyStat {
	return ApplyRollingWindows(Aggregate(reviews), reviews)
}

// BuildDashboard computes the series over every review, then narrows the
// daily rows and the raw reviews with the same resolved range.
func BuildDashboard(reviews []model.Review, req RangeRequest, today time.Time) Dashboard {
	rng, ok := ResolveRange(reviews, req)
	if !ok {
		return Dashboard{
			Daily:     []DailyStat{},
			Sentiment: []DailySentiment{},
			Metrics:   ComputeTopline(reviews, nil, today),
		}
	}

	series := DailySeries(reviews)
	inRange := FilterReviews(reviews, rng)

	return Dashboard{
		Range:            rng,
		HasData:          len(reviews) > 0,
		Metrics:          ComputeTopline(reviews, inRange, today),
		Daily:            FilterDailyStats(series, rng),
		Sentiment:        DailySentimentBreakdown(inRange),
		SentimentSummary: SummarizeSentiment(inRange),
	}
}
