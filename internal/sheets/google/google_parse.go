package google

import (
	"fmt"
	"strconv"

	"occupancy/internal/core"
	"occupancy/internal/ingest"
)

// parseValues converts a values matrix (as returned by the Sheets API)
// into reservations. The first row is the header.
func parseValues(values [][]any, cols ingest.Columns) ([]core.Reservation, error) {
	if len(values) == 0 {
		return nil, ingest.ErrEmptyInput
	}
	header := toStrings(values[0])
	rows := make([][]string, len(values)-1)
	for i, v := range values[1:] {
		rows[i] = toStrings(v)
	}
	return ingest.FromRows(header, rows, cols)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}
