package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"occupancy/internal/core"
)

var ErrEmptyInput = errors.New("empty input: header row required")

// Record is the raw text of the reservation fields of one data row.
type Record struct {
	Row          int
	StartDay     string
	EndDay       string
	MonthlyPrice string
	Capacity     string
}

// Parse converts the raw record to a reservation.
func (r Record) Parse() core.Reservation {
	return core.Reservation{
		Row:          r.Row,
		StartDate:    ParseStartDate(r.StartDay),
		EndDate:      ParseDate(r.EndDay),
		MonthlyPrice: ParsePrice(r.MonthlyPrice),
		Capacity:     ParseCapacity(r.Capacity),
	}
}

// ReadCSV reads a CSV document whose first row is the header and returns
// one reservation per data row, in input order.
func ReadCSV(r io.Reader, cols Columns) ([]core.Reservation, error) {
	records, err := ReadRecords(r, cols)
	if err != nil {
		return nil, err
	}
	return ParseRecords(records), nil
}

// ReadRecords is ReadCSV without the parsing step. Storage layers keep the
// raw text so that a reload applies exactly the same rules.
func ReadRecords(r io.Reader, cols Columns) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows read missing cells as empty
	cr.LazyQuotes = true

	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, ErrEmptyInput
	}
	return RecordsFromRows(all[0], all[1:], cols)
}

// FromRows converts a header and a cell matrix into reservations.
func FromRows(header []string, rows [][]string, cols Columns) ([]core.Reservation, error) {
	records, err := RecordsFromRows(header, rows, cols)
	if err != nil {
		return nil, err
	}
	return ParseRecords(records), nil
}

// RecordsFromRows picks the reservation columns out of each row.
// Fully blank rows are skipped; Row keeps the original data row number.
func RecordsFromRows(header []string, rows [][]string, cols Columns) ([]Record, error) {
	if len(header) == 0 {
		return nil, ErrEmptyInput
	}
	l, err := resolve(header, cols)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(rows))
	for i, row := range rows {
		if blank(row) {
			continue
		}
		out = append(out, Record{
			Row:          i + 1,
			StartDay:     cell(row, l.start),
			EndDay:       cell(row, l.end),
			MonthlyPrice: cell(row, l.price),
			Capacity:     cell(row, l.capacity),
		})
	}
	return out, nil
}

// ParseRecords converts raw records into reservations.
func ParseRecords(records []Record) []core.Reservation {
	out := make([]core.Reservation, len(records))
	for i, r := range records {
		out[i] = r.Parse()
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
