package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"occupancy/internal/core"
	"occupancy/internal/ingest"
	"occupancy/internal/sheets"
)

// SeedSheetID is the id of the sheet loaded by NewFromCSV.
const SeedSheetID = "seed"

type entry struct {
	info    core.SheetInfo
	records []ingest.Record
}

// Store keeps imported sheets in process memory.
type Store struct {
	mu     sync.RWMutex
	sheets map[string]entry
}

func New() *Store {
	return &Store{sheets: make(map[string]entry)}
}

// NewFromCSV returns a store holding the CSV file at path as its only sheet.
func NewFromCSV(path string, cols ingest.Columns) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed csv: %w", err)
	}
	defer f.Close()

	records, err := ingest.ReadRecords(f, cols)
	if err != nil {
		return nil, fmt.Errorf("read seed csv %s: %w", path, err)
	}

	s := New()
	info := core.SheetInfo{
		ID:         SeedSheetID,
		Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		ImportedAt: time.Now().UTC(),
		Rows:       len(records),
	}
	if err := s.Save(context.Background(), info, records); err != nil {
		return nil, err
	}
	return s, nil
}

// Save stores a copy of the records under info.ID, replacing any sheet
// with the same id.
func (s *Store) Save(_ context.Context, info core.SheetInfo, records []ingest.Record) error {
	if info.ID == "" {
		return fmt.Errorf("save sheet: empty id")
	}
	info.Rows = len(records)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[info.ID] = entry{info: info, records: append([]ingest.Record(nil), records...)}
	return nil
}

// Load returns the sheet with the given id.
func (s *Store) Load(_ context.Context, id string) (core.Sheet, error) {
	s.mu.RLock()
	e, ok := s.sheets[id]
	s.mu.RUnlock()
	if !ok {
		return core.Sheet{}, fmt.Errorf("%w: %s", sheets.ErrSheetNotFound, id)
	}
	return toSheet(e), nil
}

// Latest returns the most recently imported sheet.
func (s *Store) Latest(_ context.Context) (core.Sheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest entry
		found  bool
	)
	for _, e := range s.sheets {
		if !found || newer(e.info, latest.info) {
			latest, found = e, true
		}
	}
	if !found {
		return core.Sheet{}, sheets.ErrSheetNotFound
	}
	return toSheet(latest), nil
}

// ListSheets returns sheet summaries, newest first.
func (s *Store) ListSheets(_ context.Context) ([]core.SheetInfo, error) {
	s.mu.RLock()
	out := make([]core.SheetInfo, 0, len(s.sheets))
	for _, e := range s.sheets {
		out = append(out, e.info)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out, nil
}

func newer(a, b core.SheetInfo) bool {
	if !a.ImportedAt.Equal(b.ImportedAt) {
		return a.ImportedAt.After(b.ImportedAt)
	}
	return a.ID > b.ID
}

func toSheet(e entry) core.Sheet {
	return core.Sheet{
		ID:           e.info.ID,
		Name:         e.info.Name,
		ImportedAt:   e.info.ImportedAt,
		Reservations: ingest.ParseRecords(e.records),
	}
}
