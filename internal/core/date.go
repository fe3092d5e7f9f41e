package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type dateState uint8

const (
	dateAbsent dateState = iota
	dateValid
	dateInvalid
)

// Date is a calendar date read from input text. It is either absent
// (the column was empty), valid, or invalid (the text could not be parsed).
// Invalid dates never compare as before, after or equal to anything.
type Date struct {
	t     time.Time
	state dateState
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

var (
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidPeriod = errors.New("invalid period: expected YYYY-MM")
)

// NewDate creates a valid Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{t: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), state: dateValid}
}

// DateFromTime keeps only the calendar part of t.
func DateFromTime(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// InvalidDate marks a date that was present but could not be parsed.
func InvalidDate() Date {
	return Date{state: dateInvalid}
}

// NoDate is the absent date, used for open-ended reservations.
func NoDate() Date {
	return Date{}
}

// Valid reports whether the date holds a usable calendar value.
func (d Date) Valid() bool { return d.state == dateValid }

// IsEmpty returns true when no date was given at all.
func (d Date) IsEmpty() bool { return d.state == dateAbsent }

// Present returns true when the input had a value, parseable or not.
func (d Date) Present() bool { return d.state != dateAbsent }

// Day returns the day of the month, 0 when not valid.
func (d Date) Day() int {
	if !d.Valid() {
		return 0
	}
	return d.t.Day()
}

// Month returns the month, 0 when not valid.
func (d Date) Month() int {
	if !d.Valid() {
		return 0
	}
	return int(d.t.Month())
}

// Year returns the year, 0 when not valid.
func (d Date) Year() int {
	if !d.Valid() {
		return 0
	}
	return d.t.Year()
}

// YearMonth returns the calendar month of the date. The boolean is false
// for absent and invalid dates.
func (d Date) YearMonth() (YearMonth, bool) {
	if !d.Valid() {
		return YearMonth{}, false
	}
	return YearMonth{Year: d.t.Year(), Month: int(d.t.Month())}, true
}

// Before reports whether d is strictly before o. False if either is not valid.
func (d Date) Before(o Date) bool {
	if !d.Valid() || !o.Valid() {
		return false
	}
	return d.t.Before(o.t)
}

// Time returns the underlying time, zero when not valid.
func (d Date) Time() time.Time {
	if !d.Valid() {
		return time.Time{}
	}
	return d.t
}

func (d Date) String() string {
	switch d.state {
	case dateValid:
		return d.t.Format("2006-01-02")
	case dateInvalid:
		return "invalid"
	default:
		return ""
	}
}

// NewYearMonth validates and builds a YearMonth.
func NewYearMonth(year, month int) (YearMonth, error) {
	if month < 1 || month > 12 {
		return YearMonth{}, ErrInvalidMonth
	}
	if year < 1 || year > 9999 {
		return YearMonth{}, ErrInvalidYear
	}
	return YearMonth{Year: year, Month: month}, nil
}

// ParseYearMonth parses the "YYYY-MM" value produced by an HTML month input.
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	y, m, ok := strings.Cut(s, "-")
	if !ok {
		return YearMonth{}, ErrInvalidPeriod
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return YearMonth{}, ErrInvalidPeriod
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return YearMonth{}, ErrInvalidPeriod
	}
	return NewYearMonth(year, month)
}

// Compare orders months chronologically: year first, then month.
func (ym YearMonth) Compare(o YearMonth) int {
	switch {
	case ym.Year < o.Year:
		return -1
	case ym.Year > o.Year:
		return 1
	case ym.Month < o.Month:
		return -1
	case ym.Month > o.Month:
		return 1
	}
	return 0
}

// Before reports whether ym is chronologically strictly before o.
func (ym YearMonth) Before(o YearMonth) bool { return ym.Compare(o) < 0 }

// Days returns the number of calendar days in the month.
func (ym YearMonth) Days() int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(ym.Year, time.Month(ym.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Label is a human friendly name, e.g. "May 2024".
func (ym YearMonth) Label() string {
	return fmt.Sprintf("%s %d", time.Month(ym.Month).String(), ym.Year)
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}
