package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reservations.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun(t *testing.T) {
	path := writeCSV(t, `Capacity, Monthly Price, Start Day, End Day
50,1000,2024-03-10,
30,290,2024-02-10,2024-02-20
20,600,2024-04-01,2024-05-15
`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-file", path, "-month", "2024-05", "-capacity", "266"}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr=%s", stderr.String())
	assert.Equal(t, "Total Monthly Revenue: $1600.00\nTotal Unreserved Capacity: 196\n", stdout.String())
}

func TestRunEmptyMonth(t *testing.T) {
	path := writeCSV(t, " Start Day, Capacity\n2025-01-01,10\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-file", path, "-month", "2024-05", "-capacity", "100"}, &stdout, &stderr)
	require.Equal(t, 0, code, "stderr=%s", stderr.String())
	assert.Equal(t, "Total Monthly Revenue: $0.00\nTotal Unreserved Capacity: 100\n", stdout.String())
}

func TestRunErrors(t *testing.T) {
	path := writeCSV(t, " Start Day\n2024-05-01\n")
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing flags", nil, 2},
		{"bad month", []string{"-file", path, "-month", "2024-13"}, 2},
		{"negative capacity", []string{"-file", path, "-month", "2024-05", "-capacity", "-1"}, 2},
		{"missing file", []string{"-file", filepath.Join(t.TempDir(), "nope.csv"), "-month", "2024-05"}, 1},
		{"unknown flag", []string{"-verbose"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.want, run(tt.args, &stdout, &stderr), "stderr=%s", stderr.String())
			assert.Zero(t, stdout.Len(), "unexpected stdout %q", stdout.String())
		})
	}
}
