package recurrence

import (
	"slices"
	"time"
)

// maxPeriods bounds the walk for rules whose occurrences never reach the
// requested window.
const maxPeriods = 100000

// Dates returns the occurrence dates of a series whose first occurrence is
// first, limited to from..to inclusive. All three are treated as calendar
// dates in UTC; COUNT is applied from first, not from from.
func (r Rule) Dates(first, from, to time.Time) []time.Time {
	first, from, to = day(first), day(from), day(to)
	interval := max(r.Interval, 1)

	var out []time.Time
	n := 0
	for k := 0; k < maxPeriods; k++ {
		for _, d := range r.period(first, k*interval) {
			if d.After(to) || (r.Until != nil && d.After(*r.Until)) {
				return out
			}
			n++
			if r.Count > 0 && n > r.Count {
				return out
			}
			if !d.Before(from) {
				out = append(out, d)
			}
		}
	}
	return out
}

// period lists, in order, the candidate dates in the step'th frequency unit
// after first. Dates before first and days a month or year lacks are left
// out.
func (r Rule) period(first time.Time, step int) []time.Time {
	y, m, d := first.Date()
	switch r.Freq {
	case Daily:
		return []time.Time{first.AddDate(0, 0, step)}
	case Weekly:
		start := first.AddDate(0, 0, 7*step)
		if len(r.ByDay) == 0 {
			return []time.Time{start}
		}
		monday := start.AddDate(0, 0, -mondayOffset(start.Weekday()))
		var out []time.Time
		for _, wd := range r.ByDay {
			c := monday.AddDate(0, 0, mondayOffset(wd))
			if !c.Before(first) {
				out = append(out, c)
			}
		}
		slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
		return out
	case Monthly:
		if r.ByMonthDay > 0 {
			d = r.ByMonthDay
		}
		c, ok := date(y, m+time.Month(step), d)
		if !ok || c.Before(first) {
			return nil
		}
		return []time.Time{c}
	case Yearly:
		c, ok := date(y+step, m, d)
		if !ok {
			return nil
		}
		return []time.Time{c}
	}
	return nil
}

// date builds y-m-d, normalizing an overflowing month, and reports false
// when the month has no such day.
func date(y int, m time.Month, d int) (time.Time, bool) {
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	c := monthStart.AddDate(0, 0, d-1)
	return c, c.Month() == monthStart.Month()
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// mondayOffset is the number of days from Monday to wd.
func mondayOffset(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
