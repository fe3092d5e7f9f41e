package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"occupancy/internal/core"
	"occupancy/internal/ingest"
	"occupancy/internal/sheets"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type sheetRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	ImportedAt string `db:"imported_at"`
	RowCount   int    `db:"row_count"`
}

type reservationRow struct {
	SheetID      string `db:"sheet_id"`
	RowNum       int    `db:"row_num"`
	StartDay     string `db:"start_day"`
	EndDay       string `db:"end_day"`
	MonthlyPrice string `db:"monthly_price"`
	Capacity     string `db:"capacity"`
}

type snapshotRow struct {
	SheetID            string  `db:"sheet_id"`
	Year               int     `db:"year"`
	Month              int     `db:"month"`
	Active             int     `db:"active"`
	Revenue            float64 `db:"revenue"`
	ReservedCapacity   int     `db:"reserved_capacity"`
	UnreservedCapacity int     `db:"unreserved_capacity"`
	TotalCapacity      int     `db:"total_capacity"`
	ComputedAt         string  `db:"computed_at"`
}

// Snapshot is a stored monthly report.
type Snapshot struct {
	SheetID    string
	Report     core.MonthReport
	ComputedAt time.Time
}

// SQLiteRepository stores sheets, their raw rows and report snapshots.
type SQLiteRepository struct {
	db *sqlx.DB
}

var (
	_ sheets.SheetWriter = (*SQLiteRepository)(nil)
	_ sheets.SheetReader = (*SQLiteRepository)(nil)
	_ sheets.SheetLister = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sqlx.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save implements sheets.SheetWriter. The sheet and its rows are written
// in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, info core.SheetInfo, records []ingest.Record) (err error) {
	if info.ID == "" {
		return errors.New("save sheet: empty id")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM sheets WHERE id = ?`, info.ID); err != nil {
		return fmt.Errorf("replace sheet %s: %w", info.ID, err)
	}

	if _, err = tx.NamedExecContext(ctx,
		`INSERT INTO sheets (id, name, imported_at, row_count) VALUES (:id, :name, :imported_at, :row_count)`,
		sheetRow{
			ID:         info.ID,
			Name:       info.Name,
			ImportedAt: info.ImportedAt.UTC().Format(timeLayout),
			RowCount:   len(records),
		}); err != nil {
		return fmt.Errorf("insert sheet: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx,
		`INSERT INTO reservations (sheet_id, row_num, start_day, end_day, monthly_price, capacity)
		 VALUES (:sheet_id, :row_num, :start_day, :end_day, :monthly_price, :capacity)`)
	if err != nil {
		return fmt.Errorf("prepare reservation insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err = stmt.ExecContext(ctx, reservationRow{
			SheetID:      info.ID,
			RowNum:       rec.Row,
			StartDay:     rec.StartDay,
			EndDay:       rec.EndDay,
			MonthlyPrice: rec.MonthlyPrice,
			Capacity:     rec.Capacity,
		}); err != nil {
			return fmt.Errorf("insert reservation row %d: %w", rec.Row, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit sheet: %w", err)
	}

	slog.InfoContext(ctx, "Sheet saved to SQLite",
		"sheet_id", info.ID,
		"sheet_name", info.Name,
		"rows", len(records))
	return nil
}

// Load implements sheets.SheetReader.
func (r *SQLiteRepository) Load(ctx context.Context, id string) (core.Sheet, error) {
	var row sheetRow
	if err := r.db.GetContext(ctx, &row,
		`SELECT id, name, imported_at, row_count FROM sheets WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Sheet{}, fmt.Errorf("%w: %s", sheets.ErrSheetNotFound, id)
		}
		return core.Sheet{}, fmt.Errorf("get sheet %s: %w", id, err)
	}
	return r.loadRows(ctx, row)
}

// Latest implements sheets.SheetReader.
func (r *SQLiteRepository) Latest(ctx context.Context) (core.Sheet, error) {
	var row sheetRow
	if err := r.db.GetContext(ctx, &row,
		`SELECT id, name, imported_at, row_count FROM sheets ORDER BY imported_at DESC, id DESC LIMIT 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Sheet{}, sheets.ErrSheetNotFound
		}
		return core.Sheet{}, fmt.Errorf("get latest sheet: %w", err)
	}
	return r.loadRows(ctx, row)
}

func (r *SQLiteRepository) loadRows(ctx context.Context, s sheetRow) (core.Sheet, error) {
	var rows []reservationRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT sheet_id, row_num, start_day, end_day, monthly_price, capacity
		 FROM reservations WHERE sheet_id = ? ORDER BY row_num, id`, s.ID); err != nil {
		return core.Sheet{}, fmt.Errorf("get reservations of sheet %s: %w", s.ID, err)
	}

	records := make([]ingest.Record, len(rows))
	for i, row := range rows {
		records[i] = ingest.Record{
			Row:          row.RowNum,
			StartDay:     row.StartDay,
			EndDay:       row.EndDay,
			MonthlyPrice: row.MonthlyPrice,
			Capacity:     row.Capacity,
		}
	}

	info := s.toInfo()
	return core.Sheet{
		ID:           info.ID,
		Name:         info.Name,
		ImportedAt:   info.ImportedAt,
		Reservations: ingest.ParseRecords(records),
	}, nil
}

// ListSheets implements sheets.SheetLister.
func (r *SQLiteRepository) ListSheets(ctx context.Context) ([]core.SheetInfo, error) {
	var rows []sheetRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT id, name, imported_at, row_count FROM sheets ORDER BY imported_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	out := make([]core.SheetInfo, len(rows))
	for i, row := range rows {
		out[i] = row.toInfo()
	}
	return out, nil
}

func (s sheetRow) toInfo() core.SheetInfo {
	at, _ := time.Parse(timeLayout, s.ImportedAt)
	return core.SheetInfo{ID: s.ID, Name: s.Name, ImportedAt: at, Rows: s.RowCount}
}

// SaveSnapshot stores the report of a sheet, replacing any earlier
// snapshot of the same month.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, sheetID string, rep core.MonthReport, computedAt time.Time) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO report_snapshots
		   (sheet_id, year, month, active, revenue, reserved_capacity, unreserved_capacity, total_capacity, computed_at)
		 VALUES
		   (:sheet_id, :year, :month, :active, :revenue, :reserved_capacity, :unreserved_capacity, :total_capacity, :computed_at)
		 ON CONFLICT (sheet_id, year, month) DO UPDATE SET
		   active = excluded.active,
		   revenue = excluded.revenue,
		   reserved_capacity = excluded.reserved_capacity,
		   unreserved_capacity = excluded.unreserved_capacity,
		   total_capacity = excluded.total_capacity,
		   computed_at = excluded.computed_at`,
		snapshotRow{
			SheetID:            sheetID,
			Year:               rep.Period.Year,
			Month:              rep.Period.Month,
			Active:             rep.Active,
			Revenue:            rep.Revenue,
			ReservedCapacity:   rep.ReservedCapacity,
			UnreservedCapacity: rep.UnreservedCapacity,
			TotalCapacity:      rep.TotalCapacity,
			ComputedAt:         computedAt.UTC().Format(timeLayout),
		})
	if err != nil {
		return fmt.Errorf("save snapshot %s %04d-%02d: %w", sheetID, rep.Period.Year, rep.Period.Month, err)
	}
	return nil
}

// ListSnapshots returns the stored reports of a sheet ordered by month.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, sheetID string) ([]Snapshot, error) {
	var rows []snapshotRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT sheet_id, year, month, active, revenue, reserved_capacity, unreserved_capacity, total_capacity, computed_at
		 FROM report_snapshots WHERE sheet_id = ? ORDER BY year, month`, sheetID); err != nil {
		return nil, fmt.Errorf("list snapshots of %s: %w", sheetID, err)
	}

	out := make([]Snapshot, len(rows))
	for i, row := range rows {
		at, _ := time.Parse(timeLayout, row.ComputedAt)
		out[i] = Snapshot{
			SheetID: row.SheetID,
			Report: core.MonthReport{
				Period:             core.YearMonth{Year: row.Year, Month: row.Month},
				Active:             row.Active,
				Revenue:            row.Revenue,
				ReservedCapacity:   row.ReservedCapacity,
				UnreservedCapacity: row.UnreservedCapacity,
				TotalCapacity:      row.TotalCapacity,
			},
			ComputedAt: at,
		}
	}
	return out, nil
}
