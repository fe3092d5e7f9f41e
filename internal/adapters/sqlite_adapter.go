package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"occupancy/internal/amqp"
	"occupancy/internal/core"
	"occupancy/internal/ingest"
	"occupancy/internal/storage"
)

// Publisher is the AMQP side of the adapter.
type Publisher interface {
	PublishSheetImported(ctx context.Context, msg *amqp.SheetImportedMessage) error
	Close() error
}

// SQLiteAdapter exposes the SQLite repository as a sheet backend and
// forwards import announcements to AMQP when a client is configured.
type SQLiteAdapter struct {
	storage   *storage.SQLiteRepository
	publisher Publisher
}

// NewSQLiteAdapter creates the adapter. client may be nil.
func NewSQLiteAdapter(storage *storage.SQLiteRepository, client *amqp.Client) *SQLiteAdapter {
	a := &SQLiteAdapter{storage: storage}
	if client != nil {
		a.publisher = client
	}
	return a
}

// Save implements sheets.SheetWriter
func (a *SQLiteAdapter) Save(ctx context.Context, info core.SheetInfo, records []ingest.Record) error {
	return a.storage.Save(ctx, info, records)
}

// Load implements sheets.SheetReader
func (a *SQLiteAdapter) Load(ctx context.Context, id string) (core.Sheet, error) {
	return a.storage.Load(ctx, id)
}

// Latest implements sheets.SheetReader
func (a *SQLiteAdapter) Latest(ctx context.Context) (core.Sheet, error) {
	return a.storage.Latest(ctx)
}

// ListSheets implements sheets.SheetLister
func (a *SQLiteAdapter) ListSheets(ctx context.Context) ([]core.SheetInfo, error) {
	return a.storage.ListSheets(ctx)
}

// ListSnapshots returns the reports the worker stored for a sheet.
func (a *SQLiteAdapter) ListSnapshots(ctx context.Context, sheetID string) ([]storage.Snapshot, error) {
	return a.storage.ListSnapshots(ctx, sheetID)
}

// SaveSnapshot stores a computed report.
func (a *SQLiteAdapter) SaveSnapshot(ctx context.Context, sheetID string, rep core.MonthReport, computedAt time.Time) error {
	return a.storage.SaveSnapshot(ctx, sheetID, rep, computedAt)
}

// Ping checks the database.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}

// PublishSheetImported implements services.Publisher. Without an AMQP
// client it is a no-op.
func (a *SQLiteAdapter) PublishSheetImported(ctx context.Context, msg *amqp.SheetImportedMessage) error {
	if a.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sheet imported message",
			"sheet_id", msg.SheetID)
		return nil
	}
	return a.publisher.PublishSheetImported(ctx, msg)
}

// Close closes both storage and AMQP connections
func (a *SQLiteAdapter) Close() error {
	var errs []error

	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close sqlite adapter: %v", errs)
	}
	return nil
}
