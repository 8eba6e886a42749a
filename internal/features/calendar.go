package features

import (
	"strconv"
	"strings"
	"time"
)

// Calendar columns derivable from a "date" column.
const (
	ColumnDate      = "date"
	ColumnYear      = "year"
	ColumnMonth     = "month"
	ColumnDay       = "day"
	ColumnDayOfWeek = "day_of_week"
	ColumnSeason    = "season"
)

var calendarColumns = []string{ColumnYear, ColumnMonth, ColumnDay, ColumnDayOfWeek, ColumnSeason}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "2006/01/02"}

// ParseDate accepts the date layouts the sources emit.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Season maps a month to its meteorological season name.
func Season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Autumn"
	}
}

// DayOfWeek numbers weekdays from Monday = 0.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func isCalendarColumn(name string) bool {
	for _, c := range calendarColumns {
		if c == name {
			return true
		}
	}
	return false
}

// deriveCalendar fills missing calendar columns from the date column.
// Unparseable dates leave the derived cells empty.
func deriveCalendar(f *Frame) error {
	dates := f.Column(ColumnDate)
	derived := make(map[string][]string, len(calendarColumns))
	for _, c := range calendarColumns {
		if !f.Has(c) {
			derived[c] = make([]string, len(dates))
		}
	}
	if len(derived) == 0 {
		return nil
	}
	for i, raw := range dates {
		t, ok := ParseDate(raw)
		if !ok {
			continue
		}
		for c, col := range derived {
			switch c {
			case ColumnYear:
				col[i] = strconv.Itoa(t.Year())
			case ColumnMonth:
				col[i] = strconv.Itoa(int(t.Month()))
			case ColumnDay:
				col[i] = strconv.Itoa(t.Day())
			case ColumnDayOfWeek:
				col[i] = strconv.Itoa(DayOfWeek(t))
			case ColumnSeason:
				col[i] = Season(t.Month())
			}
		}
	}
	for _, c := range calendarColumns {
		if col, ok := derived[c]; ok {
			if err := f.Set(c, col); err != nil {
				return err
			}
		}
	}
	return nil
}
