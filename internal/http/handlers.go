package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"occupancy/internal/core"
	"occupancy/internal/log"
	"occupancy/internal/services"
	"occupancy/internal/sheets"
)

// reportView is the template model of one monthly report.
type reportView struct {
	SheetID      string
	SheetName    string
	Label        string
	Month        string
	Active       int
	Revenue      string
	Reserved     int
	Unreserved   int
	Total        int
	OverCapacity bool
	Cached       bool
}

func newReportView(rep services.SheetReport) *reportView {
	r := rep.Report
	return &reportView{
		SheetID:      rep.Sheet.ID,
		SheetName:    rep.Sheet.Name,
		Label:        r.Period.Label(),
		Month:        r.Period.String(),
		Active:       r.Active,
		Revenue:      r.RevenueString(),
		Reserved:     r.ReservedCapacity,
		Unreserved:   r.UnreservedCapacity,
		Total:        r.TotalCapacity,
		OverCapacity: r.UnreservedCapacity < 0,
		Cached:       rep.Cached,
	}
}

type indexData struct {
	Sheets        []core.SheetInfo
	SelectedSheet string
	Month         string
	TotalCapacity int
	Report        *reportView
	Error         string
}

// templatesLoaded answers 500 when template parsing failed at startup.
func (s *Server) templatesLoaded(w http.ResponseWriter, r *http.Request) bool {
	if s.templates != nil {
		return true
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
	http.Error(w, "templates not loaded", http.StatusInternalServerError)
	return false
}

// handleIndex renders the upload form, the month picker and, when a sheet
// exists, the report of the selected month.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.templatesLoaded(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	logger := log.FromContext(ctx)

	data := indexData{
		SelectedSheet: sheetParam(r),
		TotalCapacity: s.reports.TotalCapacity(),
	}
	status := http.StatusOK

	list, err := s.lister.ListSheets(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Sheet list error", log.FieldError, err)
	}
	data.Sheets = list

	q, err := ParseMonthValue(r.URL.Query().Get("month"), s.now())
	switch {
	case err != nil:
		status = statusForError(err)
		data.Error = err.Error()
		data.Month = sanitizeInput(r.URL.Query().Get("month"))
	case len(list) > 0 || data.SelectedSheet != "":
		data.Month = q.String()
		rep, err := s.reports.MonthReport(ctx, data.SelectedSheet, q)
		if err != nil {
			status = statusForError(err)
			data.Error = errorMessage(status, err)
			if status >= http.StatusInternalServerError {
				logger.ErrorContext(ctx, "Report failed", log.FieldError, err)
			}
		} else {
			data.Report = newReportView(rep)
		}
	default:
		data.Month = q.String()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.ErrorContext(ctx, "Index template execution failed", log.FieldError, err, "template", "index.html")
	}
}

// handleReportPartial renders the report fragment for month=YYYY-MM.
func (s *Server) handleReportPartial(w http.ResponseWriter, r *http.Request) {
	if !s.templatesLoaded(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	q, err := ParseMonthValue(r.URL.Query().Get("month"), s.now())
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}
	rep, err := s.reports.MonthReport(ctx, sheetParam(r), q)
	if err != nil {
		writeHTMLError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "report_partial", newReportView(rep)); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Report template failed", log.FieldError, err)
	}
}

// handleUploadSheet imports a multipart CSV upload. Browsers are redirected
// to the report of the new sheet, JSON clients get the sheet summary.
func (s *Server) handleUploadSheet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()
	wantsJSON := strings.Contains(r.Header.Get("Accept"), "application/json")

	fail := func(err error) {
		if wantsJSON {
			writeJSONError(w, r, err)
		} else {
			writeHTMLError(w, r, err)
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: %w", services.ErrInvalidSheet, err)
		}
		fail(err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(fmt.Errorf("%w: missing file field: %w", services.ErrInvalidSheet, err))
		return
	}
	defer file.Close()

	name := sanitizeInput(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}

	info, err := s.importer.Import(ctx, name, file)
	if err != nil {
		fail(err)
		return
	}

	if wantsJSON {
		writeJSON(w, r, http.StatusCreated, toSheetJSON(info))
		return
	}
	http.Redirect(w, r, "/?sheet="+info.ID, http.StatusSeeOther)
}

// handleReportJSON returns the report of ?year=&month= for ?sheet=.
func (s *Server) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	q, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	rep, err := s.reports.MonthReport(ctx, sheetParam(r), q)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toReportJSON(rep))
}

// handleYearJSON returns the twelve monthly reports of ?year= for ?sheet=.
func (s *Server) handleYearJSON(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	year, err := ParseYearParam(r.URL.Query(), s.now())
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	info, months, err := s.reports.YearReports(ctx, sheetParam(r), year)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}

	out := yearJSON{Sheet: toSheetJSON(info), Year: year, Months: make([]monthJSON, len(months))}
	for i, m := range months {
		out.Months[i] = toMonthJSON(m)
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleListSheets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	list, err := s.lister.ListSheets(ctx)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	out := make([]sheetJSON, len(list))
	for i, info := range list {
		out[i] = toSheetJSON(info)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// handleListSnapshots returns the reports stored by the worker for a sheet.
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeJSON(w, r, http.StatusNotImplemented, errorJSON{Error: "backend does not store snapshots"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	id := sanitizeInput(r.PathValue("id"))
	snaps, err := s.snapshots.ListSnapshots(ctx, id)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	if len(snaps) == 0 {
		writeJSONError(w, r, sheets.ErrSheetNotFound)
		return
	}
	out := make([]snapshotJSON, len(snaps))
	for i, snap := range snaps {
		out[i] = toSnapshotJSON(snap)
	}
	writeJSON(w, r, http.StatusOK, out)
}
