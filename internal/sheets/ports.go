package sheets

import (
	"context"
	"errors"

	"occupancy/internal/core"
	"occupancy/internal/ingest"
)

var (
	// ErrSheetNotFound is returned when no sheet matches the requested id,
	// or when the latest sheet is requested and none was imported yet.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrReadOnly is returned by backends that cannot store sheets.
	ErrReadOnly = errors.New("backend is read-only")
)

// Ports for outbound adapters.
type (
	// SheetWriter stores a freshly imported sheet. Records keep their raw
	// text so that a reload applies the same parsing rules.
	SheetWriter interface {
		Save(ctx context.Context, info core.SheetInfo, records []ingest.Record) error
	}

	// SheetReader loads a sheet with its parsed reservations.
	SheetReader interface {
		Load(ctx context.Context, id string) (core.Sheet, error)
		// Latest returns the most recently imported sheet.
		Latest(ctx context.Context) (core.Sheet, error)
	}

	// SheetLister returns sheet summaries, newest first.
	SheetLister interface {
		ListSheets(ctx context.Context) ([]core.SheetInfo, error)
	}
)
