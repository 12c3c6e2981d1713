package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonth(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2020, 8, 5), date(2020, 9, 5)},
		{date(2020, 8, 31), date(2020, 9, 30)},
		{date(2020, 1, 31), date(2020, 2, 29)},
		{date(2021, 1, 31), date(2021, 2, 28)},
		{date(2020, 12, 31), date(2021, 1, 31)},
		{date(2020, 12, 1), date(2021, 1, 1)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AddMonth(tt.in), "AddMonth(%s)", Format(tt.in))
	}
}

func TestAddOneMonth_CanonicalDayRecovers(t *testing.T) {
	// A series anchored on the 31st collapses in short months and comes back.
	d := date(2021, 1, 31)
	var got []string
	for range 6 {
		d = AddOneMonth(d, 31)
		got = append(got, Format(d))
	}
	assert.Equal(t, []string{
		"2021-02-28", "2021-03-31", "2021-04-30", "2021-05-31", "2021-06-30", "2021-07-31",
	}, got)
}

func TestAddOneMonth_DefaultsToReferenceDay(t *testing.T) {
	assert.Equal(t, date(2020, 9, 30), AddOneMonth(date(2020, 8, 30), 0))
}

func TestAddOneMonth_IgnoresTimeOfDay(t *testing.T) {
	ref := time.Date(2020, 8, 5, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, date(2020, 9, 5), AddOneMonth(ref, 5))
}

func TestAddOneMonth_Property(t *testing.T) {
	for d := date(2019, 1, 1); d.Before(date(2025, 1, 1)); d = d.AddDate(0, 0, 1) {
		for c := 1; c <= 31; c++ {
			got := AddOneMonth(d, c)

			wantYear, wantMonth := d.Year(), d.Month()+1
			if wantMonth > time.December {
				wantYear, wantMonth = wantYear+1, time.January
			}
			require.Equal(t, wantYear, got.Year())
			require.Equal(t, wantMonth, got.Month())

			wantDay := c
			if n := DaysIn(wantYear, wantMonth); n < c {
				wantDay = n
			}
			require.Equal(t, wantDay, got.Day(), "AddOneMonth(%s, %d)", Format(d), c)
		}
	}
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2020, time.February))
	assert.Equal(t, 28, DaysIn(2100, time.February))
	assert.Equal(t, 30, DaysIn(2020, time.April))
	assert.Equal(t, 31, DaysIn(2020, time.December))
}

func TestDateClamps(t *testing.T) {
	assert.Equal(t, date(2020, 9, 30), Date(2020, time.September, 31))
	assert.Equal(t, date(2020, 9, 1), Date(2020, time.September, 0))
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	instant := time.Date(2020, 8, 31, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, date(2020, 9, 1), DateOf(instant, loc))
	assert.Equal(t, date(2020, 8, 31), DateOf(instant, time.UTC))
}

func TestParse(t *testing.T) {
	d, err := Parse("2020-02-29")
	require.NoError(t, err)
	assert.Equal(t, date(2020, 2, 29), d)

	_, err = Parse("2021-02-29")
	assert.Error(t, err)
}
