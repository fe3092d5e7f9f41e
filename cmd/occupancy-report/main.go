// Command occupancy-report prints the revenue and unreserved capacity of one
// month for a reservations CSV file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"occupancy/internal/cli"
	"occupancy/internal/config"
	"occupancy/internal/core"
	"occupancy/internal/ingest"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cli.LoadEnvFile()
	cfg := config.Load()

	fs := flag.NewFlagSet("occupancy-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "reservations CSV file (required)")
	month := fs.String("month", "", "month to report, YYYY-MM (required)")
	capacity := fs.Int("capacity", cfg.TotalCapacity, "total office capacity")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" || *month == "" {
		fmt.Fprintln(stderr, "occupancy-report: -file and -month are required")
		fs.Usage()
		return 2
	}

	q, err := core.ParseYearMonth(*month)
	if err != nil {
		fmt.Fprintf(stderr, "occupancy-report: %s: %v\n", *month, err)
		return 2
	}
	if *capacity < 0 {
		fmt.Fprintf(stderr, "occupancy-report: invalid capacity %d\n", *capacity)
		return 2
	}

	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintf(stderr, "occupancy-report: %v\n", err)
		return 1
	}
	defer f.Close()

	records, err := ingest.ReadCSV(f, cfg.Columns())
	if err != nil {
		fmt.Fprintf(stderr, "occupancy-report: %s: %v\n", *file, err)
		return 1
	}

	rep := core.ComputeReport(records, q, *capacity)
	fmt.Fprintf(stdout, "Total Monthly Revenue: $%s\n", rep.RevenueString())
	fmt.Fprintf(stdout, "Total Unreserved Capacity: %d\n", rep.UnreservedCapacity)
	return 0
}
