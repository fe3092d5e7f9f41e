package core

// MonthReport is the outcome of a single month query.
type MonthReport struct {
	Period             YearMonth
	Active             int
	Revenue            float64
	ReservedCapacity   int
	UnreservedCapacity int
	TotalCapacity      int
}

// ComputeReport filters records for q and derives revenue and capacity
// from the same filtered subset.
func ComputeReport(records []Reservation, q YearMonth, totalCapacity int) MonthReport {
	active := Filter(records, q)
	reserved := ReservedCapacity(active)
	return MonthReport{
		Period:             q,
		Active:             len(active),
		Revenue:            TotalRevenue(active),
		ReservedCapacity:   reserved,
		UnreservedCapacity: totalCapacity - reserved,
		TotalCapacity:      totalCapacity,
	}
}

// RevenueString is the revenue rounded to two decimals.
func (r MonthReport) RevenueString() string {
	return FormatRevenue(r.Revenue)
}
