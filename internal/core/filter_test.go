package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ym(t *testing.T, year, month int) YearMonth {
	t.Helper()
	q, err := NewYearMonth(year, month)
	require.NoError(t, err)
	return q
}

func TestIsActive(t *testing.T) {
	tests := []struct {
		name string
		r    Reservation
		q    YearMonth
		want bool
	}{
		{
			name: "started before and ongoing",
			r:    Reservation{StartDate: NewDate(2024, 3, 10)},
			q:    YearMonth{2024, 5},
			want: true,
		},
		{
			name: "starts after queried month",
			r:    Reservation{StartDate: NewDate(2024, 6, 1)},
			q:    YearMonth{2024, 5},
			want: false,
		},
		{
			name: "ends inside queried month",
			r:    Reservation{StartDate: NewDate(2024, 1, 1), EndDate: NewDate(2024, 3, 15)},
			q:    YearMonth{2024, 3},
			want: true,
		},
		{
			name: "ended the month before",
			r:    Reservation{StartDate: NewDate(2024, 1, 1), EndDate: NewDate(2024, 3, 15)},
			q:    YearMonth{2024, 4},
			want: false,
		},
		{
			name: "starts in queried month on the last day",
			r:    Reservation{StartDate: NewDate(2024, 5, 31)},
			q:    YearMonth{2024, 5},
			want: true,
		},
		{
			name: "starts and ends in queried month",
			r:    Reservation{StartDate: NewDate(2024, 5, 2), EndDate: NewDate(2024, 5, 3)},
			q:    YearMonth{2024, 5},
			want: true,
		},
		{
			name: "started in a previous year",
			r:    Reservation{StartDate: NewDate(2023, 11, 5)},
			q:    YearMonth{2024, 2},
			want: true,
		},
		{
			name: "ended in a previous year",
			r:    Reservation{StartDate: NewDate(2023, 1, 5), EndDate: NewDate(2023, 12, 31)},
			q:    YearMonth{2024, 1},
			want: false,
		},
		{
			name: "ends in a later year",
			r:    Reservation{StartDate: NewDate(2023, 12, 1), EndDate: NewDate(2025, 1, 10)},
			q:    YearMonth{2024, 12},
			want: true,
		},
		{
			name: "starts in a later year with a smaller month number",
			r:    Reservation{StartDate: NewDate(2025, 1, 1)},
			q:    YearMonth{2024, 12},
			want: false,
		},
		{
			name: "invalid start date",
			r:    Reservation{StartDate: InvalidDate()},
			q:    YearMonth{2024, 5},
			want: false,
		},
		{
			name: "invalid end date",
			r:    Reservation{StartDate: NewDate(2024, 1, 1), EndDate: InvalidDate()},
			q:    YearMonth{2024, 5},
			want: false,
		},
		{
			name: "end before start across months",
			r:    Reservation{StartDate: NewDate(2024, 5, 1), EndDate: NewDate(2024, 3, 1)},
			q:    YearMonth{2024, 4},
			want: false,
		},
		{
			name: "end before start within the same month",
			r:    Reservation{StartDate: NewDate(2024, 5, 20), EndDate: NewDate(2024, 5, 5)},
			q:    YearMonth{2024, 5},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsActive(tt.r, tt.q))
		})
	}
}

func TestFilterKeepsOrder(t *testing.T) {
	records := []Reservation{
		{Row: 1, StartDate: NewDate(2024, 3, 10)},
		{Row: 2, StartDate: NewDate(2024, 6, 1)},
		{Row: 3, StartDate: NewDate(2024, 1, 1), EndDate: NewDate(2024, 5, 15)},
		{Row: 4, StartDate: NewDate(2024, 1, 1), EndDate: NewDate(2024, 4, 30)},
		{Row: 5, StartDate: NewDate(2024, 5, 1)},
	}

	got := Filter(records, ym(t, 2024, 5))

	rows := make([]int, 0, len(got))
	for _, r := range got {
		rows = append(rows, r.Row)
	}
	assert.Equal(t, []int{1, 3, 5}, rows)
}

func TestFilterEmptyInput(t *testing.T) {
	got := Filter(nil, ym(t, 2024, 5))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	records := []Reservation{
		{Row: 1, StartDate: NewDate(2024, 6, 1)},
		{Row: 2, StartDate: NewDate(2024, 3, 10)},
	}
	snapshot := append([]Reservation(nil), records...)

	first := Filter(records, ym(t, 2024, 5))
	second := Filter(records, ym(t, 2024, 5))

	assert.Equal(t, snapshot, records)
	assert.Equal(t, first, second)
}
