package util

import (
	"strconv"
	"strings"
	"time"
)

// ReviewDateParser 추출된 리뷰 날짜 문자열을 달력 날짜로 정규화
type ReviewDateParser struct {
	// DefaultYear is used for dates shown without a year ("12/30"). Zero means
	// the current year of Now.
	DefaultYear int
	Now         func() time.Time
}

// NewReviewDateParser creates a parser using the wall clock.
func NewReviewDateParser(defaultYear int) *ReviewDateParser {
	return &ReviewDateParser{DefaultYear: defaultYear, Now: time.Now}
}

var fullDateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"2006.1.2",
	"2006. 1. 2.",
	"2006. 1. 2",
	"2006年1月2日",
	"2006년 1월 2일",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var monthDayLayouts = []string{
	"1月2日",
	"1월 2일",
	"Jan 2",
	"January 2",
}

// Parse returns the calendar date for raw. When raw cannot be understood it
// returns today's date and fellBack is true.
func (p *ReviewDateParser) Parse(raw string) (date time.Time, fellBack bool) {
	s := strings.TrimSpace(raw)
	if s != "" {
		if d, ok := p.parseMonthDay(s); ok {
			return d, false
		}
		for _, layout := range fullDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return dateOnly(t), false
			}
		}
	}
	return p.today(), true
}

// parseMonthDay handles year-less forms such as "12/30", "3-5" or "3月5日".
func (p *ReviewDateParser) parseMonthDay(s string) (time.Time, bool) {
	year := p.year()

	if len(s) <= 5 {
		for _, sep := range []string{"/", "-"} {
			parts := strings.Split(s, sep)
			if len(parts) != 2 {
				continue
			}
			month, errM := strconv.Atoi(parts[0])
			day, errD := strconv.Atoi(parts[1])
			if errM != nil || errD != nil {
				continue
			}
			return validDate(year, month, day)
		}
	}

	for _, layout := range monthDayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return validDate(year, int(t.Month()), t.Day())
		}
	}
	return time.Time{}, false
}

func (p *ReviewDateParser) year() int {
	if p.DefaultYear > 0 {
		return p.DefaultYear
	}
	return p.now().Year()
}

func (p *ReviewDateParser) today() time.Time {
	return dateOnly(p.now())
}

func (p *ReviewDateParser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// validDate rejects overflowing dates like 2/30 instead of normalizing them.
func validDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
