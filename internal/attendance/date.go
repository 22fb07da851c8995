package attendance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Accepted input layouts. Output is always ISO.
const (
	ISOLayout    = "2006-01-02"
	LegacyLayout = "02-01-2006"
)

// Date is a calendar day without a time component.
type Date struct {
	t time.Time
}

// NewDate returns the day y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts YYYY-MM-DD or DD-MM-YYYY.
func ParseDate(s string) (Date, error) {
	layout := ISOLayout
	if len(s) == len(LegacyLayout) && s[2] == '-' && s[5] == '-' {
		layout = LegacyLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or DD-MM-YYYY", s)
	}
	return Date{t: t}, nil
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.t }

func (d Date) Year() int { return d.t.Year() }

func (d Date) IsZero() bool { return d.t.IsZero() }

// Weekend reports whether the day is a Saturday or Sunday.
func (d Date) Weekend() bool {
	wd := d.t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// StartOfYear returns January 1st of the same year.
func (d Date) StartOfYear() Date {
	return NewDate(d.t.Year(), time.January, 1)
}

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(ISOLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

// Presence is the attendance flag. It decodes from true/false or 1/0 and is
// stored as 0/1.
type Presence bool

func (p *Presence) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1":
		*p = true
	case "false", "0":
		*p = false
	default:
		return fmt.Errorf("present must be true, false, 1 or 0")
	}
	return nil
}

// Int returns the stored form.
func (p Presence) Int() int {
	if p {
		return 1
	}
	return 0
}
