package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReviewDateParser_Parse(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)
	today := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	parser := &ReviewDateParser{DefaultYear: 2025, Now: func() time.Time { return now }}

	tests := []struct {
		name         string
		raw          string
		want         time.Time
		wantFellBack bool
	}{
		{"ISO date", "2026-01-03", time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), false},
		{"slash date", "2024/7/9", time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC), false},
		{"dotted korean style", "2024. 7. 9.", time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC), false},
		{"chinese date", "2024年7月9日", time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC), false},
		{"us date", "07/09/2024", time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC), false},
		{"month name", "Jul 9, 2024", time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC), false},
		{"timestamp", "2024-07-09 21:10:00", time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC), false},
		{"short slash uses default year", "12/30", time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC), false},
		{"short dash uses default year", "3-5", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"chinese month day", "3月5日", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"surrounding spaces", "  2026-02-01 ", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{"garbage falls back to today", "yesterday-ish", today, true},
		{"empty falls back to today", "", today, true},
		{"impossible month day", "2/30", today, true},
		{"month out of range", "13/01", today, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fellBack := parser.Parse(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFellBack, fellBack)
		})
	}
}

func TestReviewDateParser_DefaultYearFromClock(t *testing.T) {
	parser := &ReviewDateParser{Now: func() time.Time { return time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC) }}

	got, fellBack := parser.Parse("11/20")

	assert.False(t, fellBack)
	assert.Equal(t, time.Date(2027, 11, 20, 0, 0, 0, 0, time.UTC), got)
}
