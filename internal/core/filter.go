package core

// IsActive reports whether the reservation is active at any point during
// the month q. Only year and month take part in the test; days are ignored.
//
// Records with an invalid start, an invalid end, or an end before the start
// are never active.
func IsActive(r Reservation, q YearMonth) bool {
	start, ok := r.StartDate.YearMonth()
	if !ok || r.Inverted() {
		return false
	}

	startsInMonth := start == q
	startedBefore := start.Before(q)

	activeThrough := r.Ongoing()
	if end, ok := r.EndDate.YearMonth(); ok {
		activeThrough = !end.Before(q)
	}

	return (startsInMonth || startedBefore) && activeThrough
}

// Filter returns, in input order, the reservations active during q.
func Filter(records []Reservation, q YearMonth) []Reservation {
	out := make([]Reservation, 0, len(records))
	for _, r := range records {
		if IsActive(r, q) {
			out = append(out, r)
		}
	}
	return out
}
