package internal

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time component, pinned to UTC midnight.
type Date struct{ time.Time }

const dateLayout = "2006-01-02"

// ParseDate accepts strictly YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrValidation, s)
	}
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}, nil
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	tt := t.UTC()
	return Date{Time: time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC)}
}

// Window is the half-open day range [00:00:00, next midnight): it keeps
// 23:59:59 inside the day and the following midnight out.
func (d Date) Window() (from, to time.Time) {
	return d.Time, d.Time.Add(24 * time.Hour)
}

func (d Date) String() string { return d.Time.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", d.Time.Format(dateLayout))), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
