// Package recurrence expands weekly day-of-week rules into calendar days.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"orgie/internal/domain"
)

// MaxSpanDays bounds a single expansion
const MaxSpanDays = 3660

// ErrNoWeekDays indicates the rule selects no weekday
var ErrNoWeekDays = errors.New("recurrence: weekDays must not be empty")

// ErrInvalidWeekDay indicates a weekday outside 0..6
var ErrInvalidWeekDay = errors.New("recurrence: weekDay out of range")

// ErrSpanTooLong indicates the requested range exceeds MaxSpanDays
var ErrSpanTooLong = errors.New("recurrence: date range too long")

// rruleWeekdays is indexed by time.Weekday, 0 = Sunday
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Expand returns every calendar day in [start, end] whose weekday is listed
// in weekDays, ascending. Both bounds are normalized with domain.Day. An
// inverted range yields no days and no error.
func Expand(weekDays []int, start, end time.Time) ([]time.Time, error) {
	if len(weekDays) == 0 {
		return nil, ErrNoWeekDays
	}

	byDay := make([]rrule.Weekday, 0, len(weekDays))
	seen := make(map[int]struct{}, len(weekDays))
	for _, wd := range weekDays {
		if wd < 0 || wd > 6 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidWeekDay, wd)
		}
		if _, dup := seen[wd]; dup {
			continue
		}
		seen[wd] = struct{}{}
		byDay = append(byDay, rruleWeekdays[wd])
	}

	from, until := domain.Day(start), domain.Day(end)
	if from.After(until) {
		return nil, nil
	}
	if until.Sub(from) > MaxSpanDays*24*time.Hour {
		return nil, ErrSpanTooLong
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   from,
		Until:     until,
		Byweekday: byDay,
	})
	if err != nil {
		return nil, fmt.Errorf("recurrence: build rule: %w", err)
	}

	days := rule.All()
	for i := range days {
		days[i] = domain.Day(days[i])
	}
	return days, nil
}
