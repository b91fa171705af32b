// Package analytics turns a snapshot of stored reviews into the daily series,
// rolling statistics, and sentiment breakdowns shown on the dashboard.
//
// Everything here is pure in-memory computation over an already fetched
// review slice. Inputs are never modified.
package analytics

import (
	"encoding/json"
	"time"

	"github.com/ikkim/review-insight-backend/internal/app/model"
)

// DateOf truncates t to its calendar date, discarding time of day and zone.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive interval of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from two instants, truncating both to dates.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: DateOf(start), End: DateOf(end)}
}

// Empty reports whether the interval covers no days (start after end).
func (r DateRange) Empty() bool {
	return r.Start.After(r.End)
}

// Contains reports whether the calendar date of t lies within the interval.
func (r DateRange) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns the number of calendar days covered, zero when empty.
func (r DateRange) Days() int {
	if r.Empty() {
		return 0
	}
	n := 0
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// MarshalJSON writes null for the zero range, which has no dates to show.
func (r DateRange) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Start string `json:"start_date"`
		End   string `json:"end_date"`
	}{
		Start: r.Start.Format(model.DateLayout),
		End:   r.End.Format(model.DateLayout),
	})
}

// DataSpan returns the range from the earliest to the latest review date.
// ok is false for an empty review set.
func DataSpan(reviews []model.Review) (span DateRange, ok bool) {
	for i := range reviews {
		d := DateOf(reviews[i].ReviewDate)
		if !ok {
			span = DateRange{Start: d, End: d}
			ok = true
			continue
		}
		if d.Before(span.Start) {
			span.Start = d
		}
		if d.After(span.End) {
			span.End = d
		}
	}
	return span, ok
}

// RangeRequest is a possibly partial user selection.
type RangeRequest struct {
	Start *time.Time
	End   *time.Time
}

// ResolveRange fills the missing ends of a selection. A missing start falls
// back to the earliest review; a lone start selects that single day; with
// neither end given the whole data span is used. ok is false only when no
// bound was given and there are no reviews to derive one from.
func ResolveRange(reviews []model.Review, req RangeRequest) (DateRange, bool) {
	span, hasData := DataSpan(reviews)

	switch {
	case req.Start != nil && req.End != nil:
		return NewDateRange(*req.Start, *req.End), true
	case req.Start != nil:
		return NewDateRange(*req.Start, *req.Start), true
	case req.End != nil:
		if !hasData {
			end := DateOf(*req.End)
			return DateRange{Start: end, End: end}, true
		}
		return DateRange{Start: span.Start, End: DateOf(*req.End)}, true
	}
	return span, hasData
}
