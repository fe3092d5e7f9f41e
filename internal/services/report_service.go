package services

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"occupancy/internal/cache"
	"occupancy/internal/core"
	"occupancy/internal/log"
	"occupancy/internal/metrics"
	"occupancy/internal/sheets"
)

// latestKey is the cache key prefix for reports on the most recent sheet.
const latestKey = "latest"

// SheetReport is a monthly report together with the sheet it was computed on.
type SheetReport struct {
	Sheet  core.SheetInfo
	Report core.MonthReport
	Cached bool
}

// ReportService answers month queries against stored sheets.
type ReportService struct {
	reader        sheets.SheetReader
	cache         cache.Cache[SheetReport]
	metrics       *metrics.Metrics
	totalCapacity int

	// collapses concurrent misses on the same key
	flight singleflight.Group
	// bumped by Invalidate; a fill started under an older generation
	// must not write to the cache
	generation atomic.Uint64
}

// NewReportService creates the service. c and m may be nil.
func NewReportService(reader sheets.SheetReader, c cache.Cache[SheetReport], m *metrics.Metrics, totalCapacity int) *ReportService {
	return &ReportService{
		reader:        reader,
		cache:         c,
		metrics:       m,
		totalCapacity: totalCapacity,
	}
}

// TotalCapacity is the office capacity reports are computed against.
func (s *ReportService) TotalCapacity() int {
	return s.totalCapacity
}

// MonthReport returns the report of month q for the sheet with the given
// id, or for the most recent sheet when id is empty.
func (s *ReportService) MonthReport(ctx context.Context, sheetID string, q core.YearMonth) (SheetReport, error) {
	if _, err := core.NewYearMonth(q.Year, q.Month); err != nil {
		return SheetReport{}, err
	}

	key := cacheKey(sheetID, q)
	if s.cache != nil {
		if rep, ok := s.cache.Get(key); ok {
			s.count(metrics.CacheHit)
			rep.Cached = true
			logReport(ctx, rep)
			return rep, nil
		}
	}
	s.count(metrics.CacheMiss)

	gen := s.generation.Load()
	v, err, _ := s.flight.Do(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		sheet, err := s.load(ctx, sheetID)
		if err != nil {
			return SheetReport{}, err
		}
		rep := SheetReport{
			Sheet:  sheet.Info(),
			Report: core.ComputeReport(sheet.Reservations, q, s.totalCapacity),
		}
		if s.cache != nil && s.generation.Load() == gen {
			s.cache.Set(key, rep)
		}
		return rep, nil
	})
	if err != nil {
		return SheetReport{}, err
	}
	rep := v.(SheetReport)
	// Only the latest sheet feeds the gauges; sheet ids are unbounded.
	if s.metrics != nil && sheetID == "" {
		s.metrics.UnreservedCapacity.Set(float64(rep.Report.UnreservedCapacity))
		s.metrics.MonthlyRevenue.Set(rep.Report.Revenue)
	}

	logReport(ctx, rep)
	return rep, nil
}

// YearReports returns the twelve monthly reports of year for one sheet,
// loading the sheet once.
func (s *ReportService) YearReports(ctx context.Context, sheetID string, year int) (core.SheetInfo, []core.MonthReport, error) {
	if _, err := core.NewYearMonth(year, 1); err != nil {
		return core.SheetInfo{}, nil, err
	}
	sheet, err := s.load(ctx, sheetID)
	if err != nil {
		return core.SheetInfo{}, nil, err
	}

	out := make([]core.MonthReport, 12)
	for m := 1; m <= 12; m++ {
		out[m-1] = core.ComputeReport(sheet.Reservations, core.YearMonth{Year: year, Month: m}, s.totalCapacity)
	}
	return sheet.Info(), out, nil
}

// Invalidate drops cached reports of sheetID and of the latest sheet.
func (s *ReportService) Invalidate(sheetID string) {
	s.generation.Add(1)
	if s.cache == nil {
		return
	}
	if sheetID != "" {
		s.cache.DeletePrefix(sheetID + ":")
	}
	s.cache.DeletePrefix(latestKey + ":")
}

func (s *ReportService) load(ctx context.Context, sheetID string) (core.Sheet, error) {
	var (
		sheet core.Sheet
		err   error
	)
	if sheetID == "" {
		sheet, err = s.reader.Latest(ctx)
	} else {
		sheet, err = s.reader.Load(ctx, sheetID)
	}
	if err != nil {
		return core.Sheet{}, fmt.Errorf("load sheet: %w", err)
	}
	return sheet, nil
}

func (s *ReportService) count(outcome string) {
	if s.metrics != nil {
		s.metrics.ReportsComputed.WithLabelValues(outcome).Inc()
	}
}

func cacheKey(sheetID string, q core.YearMonth) string {
	if sheetID == "" {
		sheetID = latestKey
	}
	return sheetID + ":" + q.String()
}

func logReport(ctx context.Context, rep SheetReport) {
	r := rep.Report
	log.NewStructuredLogger(log.FromContext(ctx)).LogReportComputed(ctx, rep.Sheet.ID,
		r.Period.Year, r.Period.Month, r.Active, r.RevenueString(), r.UnreservedCapacity, rep.Cached)
}
