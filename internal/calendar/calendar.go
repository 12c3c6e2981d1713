// Package calendar provides the date arithmetic behind monthly payment
// schedules. All dates are represented as time.Time at midnight UTC.
package calendar

import "time"

// Layout is the wire format for calendar dates.
const Layout = "2006-01-02"

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Date builds a calendar date, clamping day to the last day of the month.
func Date(year int, month time.Month, day int) time.Time {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddOneMonth returns the date one calendar month after reference, targeting
// canonicalDay. When the following month is shorter than canonicalDay the
// result is that month's last day; the caller keeps canonicalDay so later
// months can return to it. A canonicalDay <= 0 means reference.Day().
func AddOneMonth(reference time.Time, canonicalDay int) time.Time {
	if canonicalDay <= 0 {
		canonicalDay = reference.Day()
	}

	year, month := reference.Year(), reference.Month()+1
	if month > time.December {
		month = time.January
		year++
	}
	return Date(year, month, canonicalDay)
}

// AddMonth is AddOneMonth anchored on the reference date's own day.
func AddMonth(reference time.Time) time.Time {
	return AddOneMonth(reference, reference.Day())
}

// Format renders d using Layout.
func Format(d time.Time) string {
	return d.Format(Layout)
}

// Parse reads a Layout date.
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(Layout, s, time.UTC)
}
