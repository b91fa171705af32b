package analytics

import (
	"encoding/json"
	"time"

	"github.com/ikkim/review-insight-backend/internal/app/model"
)

// DimensionValues holds one optional value per rating dimension.
type DimensionValues struct {
	Overall *float64 `json:"overall"`
	Taste   *float64 `json:"taste"`
	Env     *float64 `json:"env"`
	Service *float64 `json:"service"`
	Value   *float64 `json:"value"`
}

// Get returns the value for dim, nil when absent.
func (v *DimensionValues) Get(dim model.RatingDimension) *float64 {
	switch dim {
	case model.DimensionOverall:
		return v.Overall
	case model.DimensionTaste:
		return v.Taste
	case model.DimensionEnv:
		return v.Env
	case model.DimensionService:
		return v.Service
	case model.DimensionValue:
		return v.Value
	}
	return nil
}

// Set stores a copy of val for dim. A nil val clears it.
func (v *DimensionValues) Set(dim model.RatingDimension, val *float64) {
	var p *float64
	if val != nil {
		f := *val
		p = &f
	}
	switch dim {
	case model.DimensionOverall:
		v.Overall = p
	case model.DimensionTaste:
		v.Taste = p
	case model.DimensionEnv:
		v.Env = p
	case model.DimensionService:
		v.Service = p
	case model.DimensionValue:
		v.Value = p
	}
}

// clone returns a deep copy so series rows never share pointers.
func (v DimensionValues) clone() DimensionValues {
	var out DimensionValues
	for _, dim := range model.RatingDimensions {
		out.Set(dim, v.Get(dim))
	}
	return out
}

// DailyStat is one calendar day of the aggregated review series.
type DailyStat struct {
	Date           time.Time       `json:"date"`
	DailyCount     int             `json:"daily_count"`
	DailyAvg       DimensionValues `json:"daily_avg"`
	MovingAvg      DimensionValues `json:"moving_avg"`
	Rolling7dCount int             `json:"rolling_7d_count"`
}

func (s DailyStat) MarshalJSON() ([]byte, error) {
	type alias DailyStat
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{
		alias: alias(s),
		Date:  s.Date.Format(model.DateLayout),
	})
}

type dayAccumulator struct {
	count int
	sum   [5]float64
	n     [5]int
}

// Aggregate groups reviews by calendar date and reindexes the result onto
// every day between the earliest and latest review. Days without reviews get
// a zero count and absent averages. Rolling fields are left unset; see
// ApplyRollingWindows.
func Aggregate(reviews []model.Review) []DailyStat {
	span, ok := DataSpan(reviews)
	if !ok {
		return []DailyStat{}
	}

	byDay := make(map[time.Time]*dayAccumulator)
	for i := range reviews {
		d := DateOf(reviews[i].ReviewDate)
		acc, exists := byDay[d]
		if !exists {
			acc = &dayAccumulator{}
			byDay[d] = acc
		}
		acc.count++
		for k, dim := range model.RatingDimensions {
			if v := reviews[i].Rating(dim); v != nil {
				acc.sum[k] += *v
				acc.n[k]++
			}
		}
	}

	stats := make([]DailyStat, 0, span.Days())
	for d := span.Start; !d.After(span.End); d = d.AddDate(0, 0, 1) {
		stat := DailyStat{Date: d}
		if acc, exists := byDay[d]; exists {
			stat.DailyCount = acc.count
			for k, dim := range model.RatingDimensions {
				if acc.n[k] > 0 {
					mean := acc.sum[k] / float64(acc.n[k])
					stat.DailyAvg.Set(dim, &mean)
				}
			}
		}
		stats = append(stats, stat)
	}
	return stats
}
