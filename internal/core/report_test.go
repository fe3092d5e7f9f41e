package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnreservedCapacity(t *testing.T) {
	records := []Reservation{{Capacity: 50}, {Capacity: 30}, {Capacity: 20}}
	assert.Equal(t, 100, ReservedCapacity(records))
	assert.Equal(t, 166, UnreservedCapacity(records, 266))
}

func TestUnreservedCapacityOverbooked(t *testing.T) {
	records := []Reservation{{Capacity: 200}, {Capacity: 100}}
	assert.Equal(t, -34, UnreservedCapacity(records, 266))
}

func TestUnreservedCapacityZeroCapacityRow(t *testing.T) {
	records := []Reservation{{Capacity: 10}, {}}
	assert.Equal(t, 256, UnreservedCapacity(records, 266))
}

func TestComputeReport(t *testing.T) {
	records := []Reservation{
		{StartDate: NewDate(2024, 3, 10), MonthlyPrice: 1000, Capacity: 50},
		{StartDate: NewDate(2024, 6, 1), MonthlyPrice: 700, Capacity: 40},
		{StartDate: NewDate(2024, 4, 1), EndDate: NewDate(2024, 5, 15), MonthlyPrice: 300, Capacity: 30},
		{StartDate: InvalidDate(), MonthlyPrice: 500, Capacity: 20},
	}

	got := ComputeReport(records, YearMonth{2024, 5}, 266)

	assert.Equal(t, YearMonth{2024, 5}, got.Period)
	assert.Equal(t, 2, got.Active)
	assert.Equal(t, 80, got.ReservedCapacity)
	assert.Equal(t, 186, got.UnreservedCapacity)
	assert.Equal(t, 266, got.TotalCapacity)
	// 1000 full month + 300/15*15 from April proration.
	assert.InDelta(t, 1300.0, got.Revenue, 1e-9)
	assert.Equal(t, "1300.00", got.RevenueString())
}
