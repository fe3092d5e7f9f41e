package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"occupancy/internal/amqp"
	"occupancy/internal/core"
	"occupancy/internal/ingest"
	"occupancy/internal/log"
	"occupancy/internal/metrics"
	"occupancy/internal/sheets"
)

// ErrInvalidSheet wraps input problems that make an upload unusable.
var ErrInvalidSheet = errors.New("invalid sheet")

// Publisher announces imported sheets.
type Publisher interface {
	PublishSheetImported(ctx context.Context, msg *amqp.SheetImportedMessage) error
}

// Invalidator drops cached reports of a sheet.
type Invalidator interface {
	Invalidate(sheetID string)
}

// SheetService imports reservation sheets into storage and announces them.
type SheetService struct {
	writer      sheets.SheetWriter
	publisher   Publisher
	invalidator Invalidator
	metrics     *metrics.Metrics
	cols        ingest.Columns

	newID func() string
	now   func() time.Time
}

// NewSheetService creates the service. publisher and invalidator may be nil.
func NewSheetService(writer sheets.SheetWriter, publisher Publisher, invalidator Invalidator, m *metrics.Metrics, cols ingest.Columns) *SheetService {
	return &SheetService{
		writer:      writer,
		publisher:   publisher,
		invalidator: invalidator,
		metrics:     m,
		cols:        cols,
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// Import parses a CSV document, stores it as a new sheet and publishes a
// sheet imported message. A failed publish is logged, not returned: the
// sheet is already stored.
func (s *SheetService) Import(ctx context.Context, name string, r io.Reader) (core.SheetInfo, error) {
	records, err := ingest.ReadRecords(r, s.cols)
	if err != nil {
		return core.SheetInfo{}, fmt.Errorf("%w: %w", ErrInvalidSheet, err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled"
	}
	info := core.SheetInfo{
		ID:         s.newID(),
		Name:       name,
		ImportedAt: s.now().UTC(),
		Rows:       len(records),
	}

	if err := s.writer.Save(ctx, info, records); err != nil {
		return core.SheetInfo{}, fmt.Errorf("save sheet: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SheetsImported.WithLabelValues("upload").Inc()
		s.metrics.ReservationsIngested.Add(float64(len(records)))
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(info.ID)
	}

	sl := log.NewStructuredLogger(log.FromContext(ctx))
	if err := s.publish(ctx, info); err != nil {
		sl.LogError(ctx, "Failed to publish sheet imported message", err,
			log.ComponentAMQP, log.OpPublish, log.NewFields().WithSheet(info.ID, "", -1))
	}

	sl.LogSheetImported(ctx, info.ID, info.Name, info.Rows)
	return info, nil
}

func (s *SheetService) publish(ctx context.Context, info core.SheetInfo) error {
	if s.publisher == nil {
		log.FromContext(ctx).DebugContext(ctx, "AMQP publisher not configured, skipping sheet imported message")
		return nil
	}
	return s.publisher.PublishSheetImported(ctx, amqp.NewSheetImportedMessage(info.ID, info.Name, info.Rows))
}
