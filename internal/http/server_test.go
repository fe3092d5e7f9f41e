package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occupancy/internal/cache"
	"occupancy/internal/core"
	"occupancy/internal/ingest"
	"occupancy/internal/log"
	"occupancy/internal/metrics"
	"occupancy/internal/services"
	"occupancy/internal/sheets/memory"
	"occupancy/internal/storage"
)

const reservationsCSV = `Capacity, Monthly Price, Start Day, End Day
50,1000,2024-03-10,
30,290,2024-02-10,2024-02-20
20,600,2024-04-01,2024-05-15
`

type testEnv struct {
	srv     *Server
	store   *memory.Store
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store := memory.New()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	reports := services.NewReportService(store, cache.NewLRUCache[services.SheetReport](10, time.Minute), m, 266)
	imports := services.NewSheetService(store, nil, reports, m, ingest.DefaultColumns())

	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 1000
	}
	srv := NewServer(opts, Deps{
		Importer: imports,
		Reports:  reports,
		Lister:   store,
		Metrics:  m,
		Logger:   log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)}),
	})
	srv.now = func() time.Time { return time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC) }
	return &testEnv{srv: srv, store: store, metrics: m}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func uploadRequest(t *testing.T, name, filename, content string, asJSON bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if name != "" {
		require.NoError(t, mw.WriteField("name", name))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, _ = io.WriteString(fw, content)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sheets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}
	return req
}

func (e *testEnv) importSheet(t *testing.T) sheetJSON {
	t.Helper()
	rr := e.do(uploadRequest(t, "", "may-bookings.csv", reservationsCSV, true))
	require.Equal(t, http.StatusCreated, rr.Code, "body=%s", rr.Body.String())
	var info sheetJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	return info
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body=%s", rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		assert.Equal(t, http.StatusOK, env.get(path).Code, path)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func TestReadyReportsBackendFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.srv.pinger = failingPinger{}
	assert.Equal(t, http.StatusServiceUnavailable, env.get("/readyz").Code)
}

func TestIndexWithoutSheets(t *testing.T) {
	env := newTestEnv(t, Options{})
	rr := env.get("/")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "No reservations imported yet")
	assert.Contains(t, body, `value="2024-05"`)
	assert.Equal(t, http.StatusNotFound, env.get("/not-a-page").Code)
}

func TestPagesWithoutTemplates(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.importSheet(t)
	env.srv.templates = nil

	for _, path := range []string{"/", "/ui/report?month=2024-05"} {
		rr := env.get(path)
		assert.Equal(t, http.StatusInternalServerError, rr.Code, path)
		assert.Contains(t, rr.Body.String(), "templates not loaded", path)
	}
	// The JSON API does not depend on templates.
	assert.Equal(t, http.StatusOK, env.get("/api/report?year=2024&month=5").Code)
}

func TestUploadAndReportJSON(t *testing.T) {
	env := newTestEnv(t, Options{})
	info := env.importSheet(t)
	assert.Equal(t, "may-bookings", info.Name)
	assert.Equal(t, 3, info.Rows)

	rr := env.get("/api/report?year=2024&month=5")
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rep := decode[reportJSON](t, rr)
	assert.Equal(t, "1600.00", rep.Revenue)
	assert.Equal(t, 196, rep.UnreservedCapacity)
	assert.Equal(t, 2, rep.ActiveReservations)
	assert.Equal(t, info.ID, rep.Sheet.ID)
	assert.Equal(t, "May 2024", rep.Label)
	assert.False(t, rep.Cached)

	rep = decode[reportJSON](t, env.get("/api/report?year=2024&month=5&sheet="+info.ID))
	assert.Equal(t, "1600.00", rep.Revenue)
}

func TestReportJSONDefaultsToCurrentMonth(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.importSheet(t)

	rep := decode[reportJSON](t, env.get("/api/report"))
	assert.Equal(t, 2024, rep.Year)
	assert.Equal(t, 5, rep.Month)
}

func TestReportJSONErrors(t *testing.T) {
	env := newTestEnv(t, Options{})

	assert.Equal(t, http.StatusNotFound, env.get("/api/report?year=2024&month=5").Code, "no sheets imported")

	env.importSheet(t)
	tests := []struct {
		query string
		want  int
	}{
		{"year=2024&month=13", http.StatusUnprocessableEntity},
		{"year=2024&month=0", http.StatusUnprocessableEntity},
		{"year=2024&month=may", http.StatusUnprocessableEntity},
		{"year=twenty&month=5", http.StatusUnprocessableEntity},
		{"year=2024&month=5&sheet=missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := env.get("/api/report?" + tt.query)
			assert.Equal(t, tt.want, rr.Code)
			e := decode[errorJSON](t, rr)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestUploadRedirectsBrowser(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := env.do(uploadRequest(t, "Q2 bookings", "export.csv", reservationsCSV, false))
	require.Equal(t, http.StatusSeeOther, rr.Code, "body=%s", rr.Body.String())
	loc := rr.Header().Get("Location")
	require.Regexp(t, `^/\?sheet=`, loc)

	rr = env.get(loc)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, want := range []string{"Q2 bookings", "May 2024", "$1600.00", "196"} {
		assert.Contains(t, body, want)
	}
}

func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t, Options{})

	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"missing file", "", ""},
		{"empty csv", "empty.csv", ""},
		{"missing start column", "bad.csv", "Capacity, End Day\n1,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(uploadRequest(t, "x", tt.filename, tt.content, true))
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "body=%s", rr.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/sheets", bytes.NewBufferString("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(req).Code, "non-multipart body")
}

func TestReportPartial(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.importSheet(t)

	rr := env.get("/ui/report?month=2024-05")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Total Monthly Revenue")
	assert.Contains(t, rr.Body.String(), "$1600.00")

	// February: only the same-month record; capacity is not exceeded.
	assert.Contains(t, env.get("/ui/report?month=2024-02").Body.String(), "$290.00")

	for _, month := range []string{"2024-13", "May", "2024/05"} {
		assert.Equal(t, http.StatusUnprocessableEntity, env.get("/ui/report?month="+month).Code, month)
	}
}

func TestIndexInvalidMonth(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.importSheet(t)

	rr := env.get("/?month=2024-13")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), core.ErrInvalidMonth.Error())
}

func TestYearReportAndSheetList(t *testing.T) {
	env := newTestEnv(t, Options{})
	info := env.importSheet(t)

	rr := env.get("/api/report/year?year=2024")
	require.Equal(t, http.StatusOK, rr.Code)
	year := decode[yearJSON](t, rr)
	require.Len(t, year.Months, 12)
	assert.Equal(t, "1600.00", year.Months[4].Revenue)
	assert.Equal(t, info.ID, year.Sheet.ID)

	assert.Equal(t, http.StatusUnprocessableEntity, env.get("/api/report/year?year=abc").Code)

	list := decode[[]sheetJSON](t, env.get("/api/sheets"))
	require.Len(t, list, 1)
	assert.Equal(t, info.ID, list[0].ID)
}

type fakeSnapshots struct{ snaps []storage.Snapshot }

func (f fakeSnapshots) ListSnapshots(_ context.Context, sheetID string) ([]storage.Snapshot, error) {
	var out []storage.Snapshot
	for _, s := range f.snaps {
		if s.SheetID == sheetID {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestSnapshots(t *testing.T) {
	env := newTestEnv(t, Options{})
	require.Equal(t, http.StatusNotImplemented, env.get("/api/sheets/s1/snapshots").Code, "without snapshot store")

	env.srv.snapshots = fakeSnapshots{snaps: []storage.Snapshot{{
		SheetID:    "s1",
		Report:     core.MonthReport{Period: core.YearMonth{Year: 2024, Month: 5}, Revenue: 1600, UnreservedCapacity: 196, TotalCapacity: 266},
		ComputedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}}}

	rr := env.get("/api/sheets/s1/snapshots")
	require.Equal(t, http.StatusOK, rr.Code)
	snaps := decode[[]snapshotJSON](t, rr)
	require.Len(t, snaps, 1)
	assert.Equal(t, "1600.00", snaps[0].Revenue)
	assert.Equal(t, "May 2024", snaps[0].Label)

	assert.Equal(t, http.StatusNotFound, env.get("/api/sheets/other/snapshots").Code)
}

func TestMiddlewareChain(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := env.get("/api/sheets")
	for _, h := range []string{"X-Request-ID", "X-Content-Type-Options", "Content-Security-Policy"} {
		assert.NotEmpty(t, rr.Header().Get(h), h)
	}

	env.get("/wp-admin/setup.php")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SuspiciousRequests))

	assert.Contains(t, env.get("/metrics").Body.String(), `path="GET /api/sheets"`)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RateLimitPerMinute: 1})

	require.Equal(t, http.StatusOK, env.get("/api/sheets").Code)
	require.Equal(t, http.StatusTooManyRequests, env.get("/api/sheets").Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RateLimited))
	assert.Equal(t, http.StatusOK, env.get("/healthz").Code, "health checks are not limited")
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, Options{})
	rr := env.get("/static/app.css")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidMonth, http.StatusUnprocessableEntity},
		{services.ErrInvalidSheet, http.StatusUnprocessableEntity},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "internal error", errorMessage(http.StatusInternalServerError, errors.New("secret path")))
}
