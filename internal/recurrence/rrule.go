// Package recurrence parses the RRULE subset used for repeating calendar
// events and lists the dates a series falls on.
package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRule is returned by Parse for malformed rules.
var ErrInvalidRule = errors.New("invalid recurrence rule")

type Freq int

const (
	Daily Freq = iota
	Weekly
	Monthly
	Yearly
)

var freqs = []string{"DAILY", "WEEKLY", "MONTHLY", "YEARLY"}

func (f Freq) String() string {
	if f < Daily || f > Yearly {
		return "UNKNOWN"
	}
	return freqs[f]
}

// weekdays is indexed by time.Weekday.
var weekdays = []string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

const untilLayout = "20060102T150405Z"

// Rule is a parsed recurrence rule. Interval is at least 1; zero values of
// the other fields mean "unset".
type Rule struct {
	Freq       Freq
	Interval   int
	ByDay      []time.Weekday // WEEKLY only; empty repeats the first date's weekday
	ByMonthDay int            // MONTHLY only; 0 repeats the first date's day
	Count      int
	Until      *time.Time
}

// Parse parses an RRULE string like "FREQ=WEEKLY;BYDAY=MO,WE;INTERVAL=2".
// Keys and values are case-insensitive and an "RRULE:" prefix is allowed.
func Parse(s string) (Rule, error) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "RRULE:")
	if s == "" {
		return Rule{}, invalidRule("empty rule")
	}

	r := Rule{Interval: 1}
	seen := map[string]bool{}
	for part := range strings.SplitSeq(s, ";") {
		key, val, ok := strings.Cut(part, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" {
			return Rule{}, invalidRule("malformed part %q", part)
		}
		if seen[key] {
			return Rule{}, invalidRule("%s given twice", key)
		}
		seen[key] = true

		var err error
		switch key {
		case "FREQ":
			i := slices.Index(freqs, val)
			if i < 0 {
				return Rule{}, invalidRule("unknown frequency %q", val)
			}
			r.Freq = Freq(i)
		case "INTERVAL":
			r.Interval, err = positive(key, val, 0)
		case "COUNT":
			r.Count, err = positive(key, val, 0)
		case "BYMONTHDAY":
			r.ByMonthDay, err = positive(key, val, 31)
		case "BYDAY":
			for d := range strings.SplitSeq(val, ",") {
				i := slices.Index(weekdays, strings.TrimSpace(d))
				if i < 0 {
					return Rule{}, invalidRule("unknown day %q", d)
				}
				if !slices.Contains(r.ByDay, time.Weekday(i)) {
					r.ByDay = append(r.ByDay, time.Weekday(i))
				}
			}
		case "UNTIL":
			t, perr := time.Parse(untilLayout, val)
			if perr != nil {
				if t, perr = time.Parse("20060102", val); perr != nil {
					return Rule{}, invalidRule("bad UNTIL %q", val)
				}
				// A bare date includes the whole day.
				t = t.Add(24*time.Hour - time.Second)
			}
			r.Until = &t
		default:
			return Rule{}, invalidRule("unsupported key %q", key)
		}
		if err != nil {
			return Rule{}, err
		}
	}

	if !seen["FREQ"] {
		return Rule{}, invalidRule("FREQ is required")
	}
	if len(r.ByDay) > 0 && r.Freq != Weekly {
		return Rule{}, invalidRule("BYDAY needs FREQ=WEEKLY")
	}
	if r.ByMonthDay > 0 && r.Freq != Monthly {
		return Rule{}, invalidRule("BYMONTHDAY needs FREQ=MONTHLY")
	}
	return r, nil
}

// positive parses a number of at least 1 and, when limit > 0, at most limit.
func positive(key, val string, limit int) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 || (limit > 0 && n > limit) {
		return 0, invalidRule("bad %s %q", key, val)
	}
	return n, nil
}

func invalidRule(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidRule}, args...)...)
}

// String formats the rule in canonical RRULE form. Parse(r.String())
// yields r back.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString("FREQ=" + r.Freq.String())
	if r.Interval > 1 {
		fmt.Fprintf(&b, ";INTERVAL=%d", r.Interval)
	}
	if len(r.ByDay) > 0 {
		days := make([]string, len(r.ByDay))
		for i, d := range r.ByDay {
			days[i] = weekdays[d]
		}
		b.WriteString(";BYDAY=" + strings.Join(days, ","))
	}
	if r.ByMonthDay > 0 {
		fmt.Fprintf(&b, ";BYMONTHDAY=%d", r.ByMonthDay)
	}
	if r.Count > 0 {
		fmt.Fprintf(&b, ";COUNT=%d", r.Count)
	}
	if r.Until != nil {
		b.WriteString(";UNTIL=" + r.Until.UTC().Format(untilLayout))
	}
	return b.String()
}
