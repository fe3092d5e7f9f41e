package ingest

import (
	"strconv"
	"strings"
	"time"

	"occupancy/internal/core"
)

// dateLayouts are tried in order. Slash dates are month first, as in the
// reservation export.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDate parses a date cell. Empty text yields an absent date; text
// that matches no known layout yields an invalid date.
func ParseDate(s string) core.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.NoDate()
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return core.DateFromTime(t)
		}
	}
	return core.InvalidDate()
}

// ParseStartDate is ParseDate for the required start column: an empty cell
// is invalid rather than absent.
func ParseStartDate(s string) core.Date {
	d := ParseDate(s)
	if d.IsEmpty() {
		return core.InvalidDate()
	}
	return d
}

// ParsePrice reads the leading decimal number of s ("1500.50 EUR" -> 1500.5).
// Anything without a leading number is 0.
func ParsePrice(s string) float64 {
	num := leadingNumber(s, true)
	if num == "" {
		return 0
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseCapacity reads the leading integer of s ("12 desks" -> 12, "7.9" -> 7).
// Anything without a leading integer is 0.
func ParseCapacity(s string) int {
	num := leadingNumber(s, false)
	if num == "" {
		return 0
	}
	v, err := strconv.Atoi(num)
	if err != nil {
		return 0
	}
	return v
}

// leadingNumber returns the optional sign, digits and, when fraction is
// set, the decimal part at the start of s. It returns "" when no digit
// is found.
func leadingNumber(s string, fraction bool) string {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if fraction && end < len(s) && s[end] == '.' {
		j := end + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > end+1 {
			digits += j - end - 1
			end = j
		}
	}
	if digits == 0 {
		return ""
	}
	return s[:end]
}
