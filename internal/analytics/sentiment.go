package analytics

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/ikkim/review-insight-backend/internal/app/model"
)

// Sentiment is an ordinal bucket derived from the overall rating.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Sentiments lists the buckets from best to worst.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

const (
	positiveThreshold = 4.5
	negativeCeiling   = 3.5
)

// Classify maps an overall rating to its bucket: >= 4.5 Positive,
// (3.5, 4.5) Neutral, <= 3.5 Negative.
func Classify(rating float64) Sentiment {
	switch {
	case rating >= positiveThreshold:
		return SentimentPositive
	case rating > negativeCeiling:
		return SentimentNeutral
	default:
		return SentimentNegative
	}
}

// ClassifyReview buckets a review. A missing overall rating counts as 0.
func ClassifyReview(r *model.Review) Sentiment {
	if r.RatingOverall == nil {
		return Classify(0)
	}
	return Classify(*r.RatingOverall)
}

// SentimentStats are the bucket totals handed to the report generator.
type SentimentStats struct {
	Total       int     `json:"total"`
	Positive    int     `json:"positive"`
	Neutral     int     `json:"neutral"`
	Negative    int     `json:"negative"`
	PositivePct float64 `json:"positive_pct"`
	NeutralPct  float64 `json:"neutral_pct"`
	NegativePct float64 `json:"negative_pct"`
}

func (s *SentimentStats) add(sent Sentiment) {
	s.Total++
	switch sent {
	case SentimentPositive:
		s.Positive++
	case SentimentNeutral:
		s.Neutral++
	case SentimentNegative:
		s.Negative++
	}
}

func (s *SentimentStats) finish() {
	if s.Total == 0 {
		return
	}
	total := float64(s.Total)
	s.PositivePct = float64(s.Positive) / total * 100
	s.NeutralPct = float64(s.Neutral) / total * 100
	s.NegativePct = float64(s.Negative) / total * 100
}

// Count returns the number of reviews in one bucket.
func (s SentimentStats) Count(sent Sentiment) int {
	switch sent {
	case SentimentPositive:
		return s.Positive
	case SentimentNeutral:
		return s.Neutral
	case SentimentNegative:
		return s.Negative
	}
	return 0
}

// SummarizeSentiment counts reviews per bucket with percentages of the total.
func SummarizeSentiment(reviews []model.Review) SentimentStats {
	var stats SentimentStats
	for i := range reviews {
		stats.add(ClassifyReview(&reviews[i]))
	}
	stats.finish()
	return stats
}

// DailySentiment is the per-day stacked bar: counts and 100%-normalized
// shares. Only days that have reviews appear.
type DailySentiment struct {
	Date time.Time `json:"date"`
	SentimentStats
}

func (d DailySentiment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date string `json:"date"`
		SentimentStats
	}{
		Date:           d.Date.Format(model.DateLayout),
		SentimentStats: d.SentimentStats,
	})
}

// DailySentimentBreakdown buckets reviews per calendar day, ordered by date.
func DailySentimentBreakdown(reviews []model.Review) []DailySentiment {
	byDay := make(map[time.Time]*SentimentStats)
	for i := range reviews {
		d := DateOf(reviews[i].ReviewDate)
		stats, ok := byDay[d]
		if !ok {
			stats = &SentimentStats{}
			byDay[d] = stats
		}
		stats.add(ClassifyReview(&reviews[i]))
	}

	out := make([]DailySentiment, 0, len(byDay))
	for d, stats := range byDay {
		stats.finish()
		out = append(out, DailySentiment{Date: d, SentimentStats: *stats})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date) })
	return out
}
