package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"occupancy/internal/amqp"
	"occupancy/internal/core"
	"occupancy/internal/sheets"
)

// SnapshotStore persists computed monthly reports.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, sheetID string, rep core.MonthReport, computedAt time.Time) error
}

// ReportWorker precomputes monthly reports for freshly imported sheets.
type ReportWorker struct {
	reader        sheets.SheetReader
	snapshots     SnapshotStore
	totalCapacity int
	months        int
	now           func() time.Time
}

// NewReportWorker creates a worker that snapshots the current month and
// the months-1 months after it.
func NewReportWorker(reader sheets.SheetReader, snapshots SnapshotStore, totalCapacity, months int) *ReportWorker {
	if months < 1 {
		months = 1
	}
	return &ReportWorker{
		reader:        reader,
		snapshots:     snapshots,
		totalCapacity: totalCapacity,
		months:        months,
		now:           time.Now,
	}
}

// HandleSheetImported processes a single sheet imported message from AMQP
func (w *ReportWorker) HandleSheetImported(ctx context.Context, msg *amqp.SheetImportedMessage) error {
	slog.InfoContext(ctx, "Processing sheet imported message",
		"sheet_id", msg.SheetID,
		"rows", msg.Rows)

	sheet, err := w.reader.Load(ctx, msg.SheetID)
	if err != nil {
		return fmt.Errorf("load sheet %s: %w", msg.SheetID, err)
	}
	return w.snapshotSheet(ctx, sheet)
}

// StartupSnapshotCheck snapshots the latest sheet at worker startup.
// This recovers from messages missed while the worker was down.
func (w *ReportWorker) StartupSnapshotCheck(ctx context.Context) error {
	sheet, err := w.reader.Latest(ctx)
	if errors.Is(err, sheets.ErrSheetNotFound) {
		slog.InfoContext(ctx, "No sheets imported yet, skipping startup snapshot")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest sheet: %w", err)
	}
	slog.InfoContext(ctx, "Snapshotting latest sheet on startup", "sheet_id", sheet.ID)
	return w.snapshotSheet(ctx, sheet)
}

// RunPeriodicSnapshots re-snapshots the latest sheet every interval so the
// window keeps following the calendar when no new sheet arrives.
func (w *ReportWorker) RunPeriodicSnapshots(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.StartupSnapshotCheck(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic snapshot failed", "error", err)
			}
		}
	}
}

func (w *ReportWorker) snapshotSheet(ctx context.Context, sheet core.Sheet) error {
	now := w.now().UTC()
	start := core.YearMonth{Year: now.Year(), Month: int(now.Month())}
	for i := 0; i < w.months; i++ {
		q := addMonths(start, i)
		rep := core.ComputeReport(sheet.Reservations, q, w.totalCapacity)
		if err := w.snapshots.SaveSnapshot(ctx, sheet.ID, rep, now); err != nil {
			return fmt.Errorf("save snapshot %s: %w", q, err)
		}

		slog.InfoContext(ctx, "Report snapshot stored",
			"sheet_id", sheet.ID,
			"year", q.Year,
			"month", q.Month,
			"active_reservations", rep.Active,
			"revenue", rep.RevenueString(),
			"unreserved_capacity", rep.UnreservedCapacity)
	}
	return nil
}

func addMonths(ym core.YearMonth, n int) core.YearMonth {
	idx := ym.Year*12 + (ym.Month - 1) + n
	return core.YearMonth{Year: idx / 12, Month: idx%12 + 1}
}
