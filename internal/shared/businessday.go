package shared

import "time"

// DefaultCutoffHour is the hour at which a new business day starts. Service after
// midnight still belongs to the previous day.
const DefaultCutoffHour = 3

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days returns the number of whole days spanned by the window.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// BusinessDayStart returns the start of the business day that contains t.
func BusinessDayStart(t time.Time, cutoffHour int) time.Time {
	start := time.Date(t.Year(), t.Month(), t.Day(), cutoffHour, 0, 0, 0, t.Location())
	if t.Hour() < cutoffHour {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// BusinessDay returns the window of the business day containing t.
func BusinessDay(t time.Time, cutoffHour int) Window {
	start := BusinessDayStart(t, cutoffHour)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// DateRange returns [from cutoff, to+1 cutoff) for calendar dates from and to.
func DateRange(from, to time.Time, cutoffHour int) Window {
	start := time.Date(from.Year(), from.Month(), from.Day(), cutoffHour, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), cutoffHour, 0, 0, 0, to.Location()).AddDate(0, 0, 1)
	return Window{Start: start, End: end}
}

// MonthWindow returns [first of month, first of next month) for a calendar month.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// NextMonth returns the month and year following the given ones.
func NextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// Today truncates t to midnight in its location.
func Today(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
