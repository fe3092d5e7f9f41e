package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"occupancy/internal/core"
	"occupancy/internal/log"
	"occupancy/internal/services"
	"occupancy/internal/sheets"
	"occupancy/internal/storage"
)

type sheetJSON struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ImportedAt time.Time `json:"imported_at"`
	Rows       int       `json:"rows"`
}

type monthJSON struct {
	Year               int    `json:"year"`
	Month              int    `json:"month"`
	Label              string `json:"label"`
	ActiveReservations int    `json:"active_reservations"`
	Revenue            string `json:"revenue"`
	ReservedCapacity   int    `json:"reserved_capacity"`
	UnreservedCapacity int    `json:"unreserved_capacity"`
	TotalCapacity      int    `json:"total_capacity"`
}

type reportJSON struct {
	Sheet sheetJSON `json:"sheet"`
	monthJSON
	Cached bool `json:"cached"`
}

type yearJSON struct {
	Sheet  sheetJSON   `json:"sheet"`
	Year   int         `json:"year"`
	Months []monthJSON `json:"months"`
}

type snapshotJSON struct {
	monthJSON
	ComputedAt time.Time `json:"computed_at"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func toSheetJSON(info core.SheetInfo) sheetJSON {
	return sheetJSON{ID: info.ID, Name: info.Name, ImportedAt: info.ImportedAt, Rows: info.Rows}
}

func toMonthJSON(r core.MonthReport) monthJSON {
	return monthJSON{
		Year:               r.Period.Year,
		Month:              r.Period.Month,
		Label:              r.Period.Label(),
		ActiveReservations: r.Active,
		Revenue:            r.RevenueString(),
		ReservedCapacity:   r.ReservedCapacity,
		UnreservedCapacity: r.UnreservedCapacity,
		TotalCapacity:      r.TotalCapacity,
	}
}

func toReportJSON(rep services.SheetReport) reportJSON {
	return reportJSON{Sheet: toSheetJSON(rep.Sheet), monthJSON: toMonthJSON(rep.Report), Cached: rep.Cached}
}

func toSnapshotJSON(s storage.Snapshot) snapshotJSON {
	return snapshotJSON{monthJSON: toMonthJSON(s.Report), ComputedAt: s.ComputedAt}
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidYear),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, services.ErrInvalidSheet):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sheets.ErrSheetNotFound):
		return http.StatusNotFound
	case errors.Is(err, sheets.ErrReadOnly):
		return http.StatusForbidden
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// errorMessage is the client-facing text for err. Internal errors are not
// echoed back.
func errorMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode JSON response", log.FieldError, err)
	}
}

// writeJSONError writes err as {"error": "..."} with the mapped status.
func writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
	}
	writeJSON(w, r, status, errorJSON{Error: errorMessage(status, err)})
}

// writeHTMLError writes an escaped error fragment with the mapped status.
func writeHTMLError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(errorMessage(status, err)) + `</div>`))
}
