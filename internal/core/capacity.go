package core

// ReservedCapacity sums the capacity of the given reservations.
func ReservedCapacity(records []Reservation) int {
	var sum int
	for _, r := range records {
		sum += r.Capacity
	}
	return sum
}

// UnreservedCapacity returns totalCapacity minus the reserved capacity.
// The result is negative when the offices are over-booked.
func UnreservedCapacity(records []Reservation, totalCapacity int) int {
	return totalCapacity - ReservedCapacity(records)
}
