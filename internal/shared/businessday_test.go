package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBusinessDayBeforeCutoffBelongsToPreviousDay(t *testing.T) {
	loc := time.UTC
	at := time.Date(2025, 3, 10, 2, 30, 0, 0, loc)

	day := BusinessDay(at, DefaultCutoffHour)
	assert.Equal(t, time.Date(2025, 3, 9, 3, 0, 0, 0, loc), day.Start)
	assert.Equal(t, time.Date(2025, 3, 10, 3, 0, 0, 0, loc), day.End)
	assert.True(t, day.Contains(at))
}

func TestBusinessDayAfterCutoff(t *testing.T) {
	at := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
	day := BusinessDay(at, DefaultCutoffHour)
	assert.Equal(t, at, day.Start)
	assert.False(t, day.Contains(day.End))
}

func TestDateRangeSpansInclusiveDays(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	w := DateRange(from, to, DefaultCutoffHour)
	assert.Equal(t, time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, 2, 1, 3, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, 31, w.Days())
}

func TestMonthWindowAndNextMonth(t *testing.T) {
	w := MonthWindow(2024, time.February, time.UTC)
	assert.Equal(t, 29, w.Days())

	y, m := NextMonth(2024, time.December)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.January, m)

	y, m = NextMonth(2024, time.May)
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.June, m)
}
