package service

import (
	"fmt"
	"time"
)

// PeriodClock maps instants to weekly settlement periods labelled by ISO week ("2025-W20").
//
// A period runs from the previous cutover up to, but excluding, its own cutover.
// The cutover instant itself belongs to the next period for purchases and counts as
// passed for settlement; every comparison here uses !Before (>=) for that reason.
type PeriodClock struct {
	location       *time.Location
	cutoverWeekday time.Weekday
	cutoverHour    int
	now            func() time.Time
}

// NewPeriodClock creates a clock for the given zone and weekly cutover
func NewPeriodClock(location *time.Location, cutoverWeekday time.Weekday, cutoverHour int) *PeriodClock {
	if location == nil {
		location = time.UTC
	}
	return &PeriodClock{
		location:       location,
		cutoverWeekday: cutoverWeekday,
		cutoverHour:    cutoverHour,
		now:            time.Now,
	}
}

// WithNow returns a copy of the clock that reads time from now
func (c *PeriodClock) WithNow(now func() time.Time) *PeriodClock {
	clone := *c
	clone.now = now
	return &clone
}

// Now returns the current instant in the clock's zone
func (c *PeriodClock) Now() time.Time {
	return c.now().In(c.location)
}

// Location returns the configured zone
func (c *PeriodClock) Location() *time.Location {
	return c.location
}

// CurrentPeriod returns the period a purchase made at now counts toward
func (c *PeriodClock) CurrentPeriod(now time.Time) string {
	monday := isoWeekMonday(now.In(c.location))
	if !now.Before(c.cutoverForWeek(monday)) {
		return FormatPeriod(monday.AddDate(0, 0, 7))
	}
	return FormatPeriod(monday)
}

// PreviousPeriod returns the most recently closed period at now
func (c *PeriodClock) PreviousPeriod(now time.Time) string {
	monday := isoWeekMonday(now.In(c.location))
	if !now.Before(c.cutoverForWeek(monday)) {
		return FormatPeriod(monday)
	}
	return FormatPeriod(monday.AddDate(0, 0, -7))
}

// CutoverTime returns the instant a period closes
func (c *PeriodClock) CutoverTime(period string) (time.Time, error) {
	year, week, err := ParsePeriod(period)
	if err != nil {
		return time.Time{}, err
	}
	return c.cutoverForWeek(mondayOfISOWeek(year, week, c.location)), nil
}

// IsSettlementDue reports whether the period's cutover is at or before now
func (c *PeriodClock) IsSettlementDue(period string, now time.Time) (bool, error) {
	cutover, err := c.CutoverTime(period)
	if err != nil {
		return false, err
	}
	return !now.Before(cutover), nil
}

// NextCutover returns the first cutover strictly after now
func (c *PeriodClock) NextCutover(now time.Time) time.Time {
	cutover, _ := c.CutoverTime(c.CurrentPeriod(now))
	return cutover
}

func (c *PeriodClock) cutoverForWeek(monday time.Time) time.Time {
	return time.Date(monday.Year(), monday.Month(), monday.Day()+isoWeekdayOffset(c.cutoverWeekday),
		c.cutoverHour, 0, 0, 0, c.location)
}

// FormatPeriod returns the ISO week label containing t
func FormatPeriod(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// ParsePeriod splits an ISO week label into year and week, rejecting weeks the year does not have
func ParsePeriod(period string) (int, int, error) {
	var year, week int
	if n, err := fmt.Sscanf(period, "%4d-W%2d", &year, &week); err != nil || n != 2 || len(period) != 8 {
		return 0, 0, fmt.Errorf("invalid period %q: expected YYYY-Www", period)
	}
	if week < 1 || week > 53 {
		return 0, 0, fmt.Errorf("invalid period %q: week out of range", period)
	}
	gotYear, gotWeek := mondayOfISOWeek(year, week, time.UTC).ISOWeek()
	if gotYear != year || gotWeek != week {
		return 0, 0, fmt.Errorf("invalid period %q: %d has no week %d", period, year, week)
	}
	return year, week, nil
}

// isoWeekdayOffset counts days from Monday
func isoWeekdayOffset(day time.Weekday) int {
	return (int(day) + 6) % 7
}

func isoWeekMonday(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()-isoWeekdayOffset(t.Weekday()), 0, 0, 0, 0, t.Location())
}

// mondayOfISOWeek uses the rule that January 4th always falls in week 1
func mondayOfISOWeek(year, week int, location *time.Location) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, location)
	monday := isoWeekMonday(jan4)
	return time.Date(monday.Year(), monday.Month(), monday.Day()+(week-1)*7, 0, 0, 0, 0, location)
}
