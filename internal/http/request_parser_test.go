package http

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occupancy/internal/core"
)

var fixedNow = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func TestParseMonthParams(t *testing.T) {
	tests := []struct {
		query   string
		want    core.YearMonth
		wantErr error
	}{
		{"", core.YearMonth{Year: 2024, Month: 5}, nil},
		{"year=2023&month=12", core.YearMonth{Year: 2023, Month: 12}, nil},
		{"month=2", core.YearMonth{Year: 2024, Month: 2}, nil},
		{"year=%202025%20&month=%201", core.YearMonth{Year: 2025, Month: 1}, nil},
		{"month=13", core.YearMonth{}, core.ErrInvalidMonth},
		{"month=0", core.YearMonth{}, core.ErrInvalidMonth},
		{"month=may", core.YearMonth{}, core.ErrInvalidMonth},
		{"year=0", core.YearMonth{}, core.ErrInvalidYear},
		{"year=abc", core.YearMonth{}, core.ErrInvalidYear},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseMonthParams(q, fixedNow)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMonthValue(t *testing.T) {
	got, err := ParseMonthValue("  ", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, core.YearMonth{Year: 2024, Month: 5}, got)

	got, err = ParseMonthValue("2023-11", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, core.YearMonth{Year: 2023, Month: 11}, got)

	_, err = ParseMonthValue("November", fixedNow)
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestParseYearParam(t *testing.T) {
	y, err := ParseYearParam(url.Values{}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 2024, y)

	y, err = ParseYearParam(url.Values{"year": {"2030"}}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 2030, y)

	_, err = ParseYearParam(url.Values{"year": {"10000"}}, fixedNow)
	assert.ErrorIs(t, err, core.ErrInvalidYear)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "abc-1", sanitizeInput("  abc\x00\x07-1\t "))
}
