package dates

import (
	"fmt"
	"strings"
	"time"

	models "io.winapps.healthjournal/internal/models/entry"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// Calendar answers every "which day is it" question for one viewer. All day
// keys are built from calendar fields in Location, never by slicing a UTC
// string.
type Calendar struct {
	Location *time.Location
	Now      func() time.Time
}

// NewCalendar returns a Calendar for loc using the wall clock.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{Location: loc, Now: time.Now}
}

// LoadLocation resolves an IANA zone name. Empty or "Local" yields fallback.
func LoadLocation(name string, fallback *time.Location) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		if fallback == nil {
			return time.Local, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now().In(c.loc())
	}
	return c.Now().In(c.loc())
}

// LocalDate formats the viewer-local calendar day of t as YYYY-MM-DD.
func (c Calendar) LocalDate(t time.Time) string {
	l := t.In(c.loc())
	return fmt.Sprintf("%04d-%02d-%02d", l.Year(), int(l.Month()), l.Day())
}

// LocalDateTime formats t as YYYY-MM-DDTHH:mm in the viewer's zone.
func (c Calendar) LocalDateTime(t time.Time) string {
	l := t.In(c.loc())
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", l.Year(), int(l.Month()), l.Day(), l.Hour(), l.Minute())
}

// Today is the viewer-local date key of the current instant.
func (c Calendar) Today() string {
	return c.LocalDate(c.now())
}

// Stamp defaults a new entry's Datetime to the current local minute when it
// carries neither a datetime nor a diary date, so it counts toward today.
func (c Calendar) Stamp(e models.Entry) models.Entry {
	if strings.TrimSpace(e.Datetime) == "" && strings.TrimSpace(e.Date) == "" {
		e.Datetime = c.LocalDateTime(c.now())
	}
	return e
}

// ParseEntryTime reads a user-supplied datetime. Strings carrying an offset
// are converted into the viewer's zone; naive strings are read as viewer-local.
func (c Calendar) ParseEntryTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(c.loc()), true
	}
	for _, layout := range []string{DateTimeLayout, "2006-01-02T15:04:05", "2006-01-02T15:04:05.000", DateLayout} {
		if t, err := time.ParseInLocation(layout, s, c.loc()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateKeyOf returns the day an entry is attributed to: the diary date
// override, else the local date of its datetime, else "".
func (c Calendar) DateKeyOf(e models.Entry) string {
	if e.Date != "" {
		return e.Date
	}
	if t, ok := c.ParseEntryTime(e.Datetime); ok {
		return c.LocalDate(t)
	}
	return ""
}

// SortTime is the instant used to order entries: datetime when it parses,
// otherwise the creation timestamp.
func (c Calendar) SortTime(e models.Entry) (time.Time, bool) {
	if t, ok := c.ParseEntryTime(e.Datetime); ok {
		return t, true
	}
	if !e.Timestamp.IsZero() {
		return e.Timestamp.In(c.loc()), true
	}
	return time.Time{}, false
}

// LastNDays returns the n calendar days ending today, oldest first.
func (c Calendar) LastNDays(n int) []string {
	if n <= 0 {
		return []string{}
	}
	now := c.now()
	y, m, d := now.Date()
	days := make([]string, n)
	for i := 0; i < n; i++ {
		// noon avoids DST gaps shifting the calendar day
		day := time.Date(y, m, d-(n-1-i), 12, 0, 0, 0, c.loc())
		days[i] = c.LocalDate(day)
	}
	return days
}

// DayBounds returns the first and last instant of a YYYY-MM-DD day in the
// viewer's zone.
func (c Calendar) DayBounds(day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(day), c.loc())
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", day, err)
	}
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, c.loc())
	end := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), c.loc())
	return start, end, nil
}
