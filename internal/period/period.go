// Package period derives the three comparison windows for a requested date range.
package period

import (
	"errors"
	"fmt"
	"time"

	"github.com/AngelCh415/sales-compare/internal/models"
)

// YearShiftDays is the fixed offset of the year-over-year window. It ignores
// leap years and weekday alignment.
const YearShiftDays = 365

// ErrInvalidRange is matched by every *InvalidRangeError through errors.Is.
var ErrInvalidRange = errors.New("invalid date range")

// InvalidRangeError reports a caller supplied range that cannot be resolved:
// a missing bound or an end before the start.
type InvalidRangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range [%s, %s]: %s", fmtDay(e.Start), fmtDay(e.End), e.Reason)
}

func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

// Periods holds the windows compared by the dashboard.
type Periods struct {
	Current      models.Window
	Previous     models.Window
	YearOverYear models.Window
}

// All returns the windows in presentation order.
func (p Periods) All() []models.Window {
	return []models.Window{p.Current, p.Previous, p.YearOverYear}
}

// Resolve computes the current window [start, end], the previous window of the
// same length ending the day before start, and the current window shifted back
// YearShiftDays. Both bounds are truncated to their calendar day first.
func Resolve(start, end time.Time) (Periods, error) {
	if start.IsZero() || end.IsZero() {
		return Periods{}, &InvalidRangeError{Start: start, End: end, Reason: "start and end are required"}
	}
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return Periods{}, &InvalidRangeError{Start: start, End: end, Reason: "end is before start"}
	}

	length := int(end.Sub(start).Hours() / 24)
	back := length + 1

	return Periods{
		Current: models.Window{Label: models.WindowCurrent, Start: start, End: end},
		Previous: models.Window{
			Label: models.WindowPrevious,
			Start: start.AddDate(0, 0, -back),
			End:   end.AddDate(0, 0, -back),
		},
		YearOverYear: models.Window{
			Label: models.WindowYearOverYear,
			Start: start.AddDate(0, 0, -YearShiftDays),
			End:   end.AddDate(0, 0, -YearShiftDays),
		},
	}, nil
}

// Day truncates t to midnight UTC of its own calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fmtDay(t time.Time) string {
	if t.IsZero() {
		return "<none>"
	}
	return t.Format(models.DateLayout)
}
