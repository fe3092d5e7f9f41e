package core

import "strconv"

// IsFullMonth classifies a reservation by comparing its own start month
// with its own end month. The queried month plays no part.
func IsFullMonth(r Reservation) bool {
	if r.Ongoing() {
		return true
	}
	start, okStart := r.StartDate.YearMonth()
	end, okEnd := r.EndDate.YearMonth()
	return okStart && okEnd && start == end
}

// Prorate returns the partial-month amount for r, using the month of its
// start date as the basis:
//
//	daysInMonth            = days in the start month
//	daysInReservationMonth = end day-of-month, or daysInMonth when ongoing
//	activeDays             = min(daysInMonth, daysInReservationMonth) - startDay + 1
//	revenue                = MonthlyPrice / daysInReservationMonth * activeDays
//
// Records with an invalid start or end contribute 0.
func Prorate(r Reservation) float64 {
	basis, ok := r.StartDate.YearMonth()
	if !ok || (r.EndDate.Present() && !r.EndDate.Valid()) {
		return 0
	}

	daysInMonth := basis.Days()
	daysInReservationMonth := daysInMonth
	if r.EndDate.Valid() {
		daysInReservationMonth = r.EndDate.Day()
	}

	activeDays := min(daysInMonth, daysInReservationMonth) - r.StartDate.Day() + 1
	return r.MonthlyPrice / float64(daysInReservationMonth) * float64(activeDays)
}

// Revenue is the amount a single reservation contributes to a month.
func Revenue(r Reservation) float64 {
	if !r.StartDate.Valid() {
		return 0
	}
	if IsFullMonth(r) {
		return r.MonthlyPrice
	}
	return Prorate(r)
}

// TotalRevenue sums Revenue over records. No rounding is applied.
func TotalRevenue(records []Reservation) float64 {
	var total float64
	for _, r := range records {
		total += Revenue(r)
	}
	return total
}

// FormatRevenue renders an amount with two decimals for display.
func FormatRevenue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
