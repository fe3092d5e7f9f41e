// Package ingest turns tabular reservation data into core.Reservation values.
//
// It is the only place that knows about header names and text formats.
// Header keys are matched after trimming and case folding, so the source
// header " Start Day" and a cleaned-up "start day" both resolve.
package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Default column names as they appear in the reservation export.
const (
	DefaultStartDay     = " Start Day"
	DefaultEndDay       = " End Day"
	DefaultMonthlyPrice = " Monthly Price"
	DefaultCapacity     = "Capacity"
)

var ErrMissingColumn = errors.New("missing required column")

// Columns names the header keys that carry each reservation field.
type Columns struct {
	StartDay     string
	EndDay       string
	MonthlyPrice string
	Capacity     string
}

// DefaultColumns returns the column names of the reservation export.
func DefaultColumns() Columns {
	return Columns{
		StartDay:     DefaultStartDay,
		EndDay:       DefaultEndDay,
		MonthlyPrice: DefaultMonthlyPrice,
		Capacity:     DefaultCapacity,
	}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if strings.TrimSpace(c.StartDay) == "" {
		c.StartDay = d.StartDay
	}
	if strings.TrimSpace(c.EndDay) == "" {
		c.EndDay = d.EndDay
	}
	if strings.TrimSpace(c.MonthlyPrice) == "" {
		c.MonthlyPrice = d.MonthlyPrice
	}
	if strings.TrimSpace(c.Capacity) == "" {
		c.Capacity = d.Capacity
	}
	return c
}

// normalizeKey is the matching form of a header key.
func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// layout holds the resolved column positions for one header row.
// A position of -1 means the column is absent.
type layout struct {
	start, end, price, capacity int
}

func resolve(header []string, cols Columns) (layout, error) {
	cols = cols.withDefaults()
	index := make(map[string]int, len(header))
	for i, h := range header {
		k := normalizeKey(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}
	find := func(name string) int {
		if i, ok := index[normalizeKey(name)]; ok {
			return i
		}
		return -1
	}

	l := layout{
		start:    find(cols.StartDay),
		end:      find(cols.EndDay),
		price:    find(cols.MonthlyPrice),
		capacity: find(cols.Capacity),
	}
	// Only the start date is required; the other fields coerce to zero
	// or absent when their column is missing.
	if l.start == -1 {
		return l, fmt.Errorf("%w: %q (header=%v)", ErrMissingColumn, strings.TrimSpace(cols.StartDay), header)
	}
	return l, nil
}
