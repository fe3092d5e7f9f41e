package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"occupancy/internal/core"
)

// ParseMonthParams reads the year and month query parameters. An absent
// parameter defaults to the current year or month; a present but malformed
// one is an error.
func ParseMonthParams(query url.Values, now time.Time) (core.YearMonth, error) {
	year, month := now.Year(), int(now.Month())

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.YearMonth{}, core.ErrInvalidYear
		}
		year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.YearMonth{}, core.ErrInvalidMonth
		}
		month = m
	}
	return core.NewYearMonth(year, month)
}

// ParseMonthValue reads a "YYYY-MM" value as sent by an HTML month input,
// defaulting to the current month when empty.
func ParseMonthValue(v string, now time.Time) (core.YearMonth, error) {
	if strings.TrimSpace(v) == "" {
		return core.YearMonth{Year: now.Year(), Month: int(now.Month())}, nil
	}
	return core.ParseYearMonth(v)
}

// ParseYearParam reads the year query parameter, defaulting to the current year.
func ParseYearParam(query url.Values, now time.Time) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return now.Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.ErrInvalidYear
	}
	if _, err := core.NewYearMonth(y, 1); err != nil {
		return 0, err
	}
	return y, nil
}

// sheetParam returns the sanitized sheet id, empty meaning the latest sheet.
func sheetParam(r *http.Request) string {
	return sanitizeInput(r.URL.Query().Get("sheet"))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
