package core

import "time"

type (
	// Reservation is one row of the reservation sheet.
	Reservation struct {
		Row          int // 1-based data row in the source, 0 if unknown
		StartDate    Date
		EndDate      Date // absent means ongoing
		MonthlyPrice float64
		Capacity     int
	}

	// Sheet is an imported, immutable set of reservations.
	Sheet struct {
		ID           string
		Name         string
		ImportedAt   time.Time
		Reservations []Reservation
	}

	// SheetInfo describes a sheet without its rows.
	SheetInfo struct {
		ID         string
		Name       string
		ImportedAt time.Time
		Rows       int
	}
)

// Ongoing reports whether the reservation has no end date.
func (r Reservation) Ongoing() bool {
	return r.EndDate.IsEmpty()
}

// Inverted reports whether the end date is strictly before the start date.
func (r Reservation) Inverted() bool {
	return r.EndDate.Before(r.StartDate)
}

// Info returns the sheet summary.
func (s Sheet) Info() SheetInfo {
	return SheetInfo{
		ID:         s.ID,
		Name:       s.Name,
		ImportedAt: s.ImportedAt,
		Rows:       len(s.Reservations),
	}
}
