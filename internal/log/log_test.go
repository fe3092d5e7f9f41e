package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{
		Level:     level,
		Component: ComponentReport,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level}),
	})
}

func TestLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo)

	logger.Info("computed", FieldYear, 2024)

	out := buf.String()
	assert.Contains(t, out, "component=report")
	assert.Contains(t, out, "year=2024")
}

func TestLogger_ComponentWrittenOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo).
		WithComponent(ComponentHTTP).
		With(FieldRequestID, "req-1").
		WithComponent(ComponentWorker)

	logger.Info("one")
	logger.ErrorContext(context.Background(), "two")

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.Equal(t, 1, strings.Count(line, "component="), "line %q", line)
		assert.Contains(t, line, "component=worker")
		assert.Contains(t, line, "request_id=req-1")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestNew_DefaultComponent(t *testing.T) {
	logger := New(Config{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil)})
	assert.Equal(t, ComponentApp, logger.Component())
	assert.Equal(t, ComponentWorker, logger.WithComponent(ComponentWorker).Component())
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithSheet("abc", "", -1).
		WithPeriod(2024, 5).
		WithError(errors.New("boom")).
		WithError(nil)

	assert.Equal(t, "abc", f[FieldSheetID])
	assert.NotContains(t, f, FieldSheetName, "empty sheet name should be omitted")
	assert.NotContains(t, f, FieldRows, "negative rows should be omitted")
	assert.Equal(t, 5, f[FieldMonth])
	assert.Equal(t, "boom", f[FieldError])
	assert.Len(t, f.ToSlice(), 2*len(f))
}

func TestMiddleware_FromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo)

	var got *Logger
	h := Middleware(logger.WithComponent(ComponentHTTP).With(FieldRequestID, "req-1"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("handled")
		}),
	)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.Equal(t, ComponentHTTP, got.Component())
	assert.Contains(t, buf.String(), "request_id=req-1")
}

func TestFromContext_Fallback(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	assert.Equal(t, ComponentApp, logger.Component())
}

func TestStructuredLogger_HTTPEndLevel(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, slog.LevelInfo))
	r := httptest.NewRequest(http.MethodGet, "/api/report?year=2024&month=5", nil)

	sl.LogHTTPEnd(context.Background(), r, http.StatusBadRequest, 3, "127.0.0.1")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Equal(t, 1, strings.Count(out, "component="))
	assert.Contains(t, out, "component=http")
}

func TestStructuredLogger_ReportComputed(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, slog.LevelInfo).WithComponent(ComponentHTTP))

	sl.LogReportComputed(context.Background(), "s1", 2024, 5, 3, "1290.00", 186, true)

	out := buf.String()
	for _, want := range []string{"sheet_id=s1", "month=5", "revenue=1290.00", "unreserved_capacity=186", "cache_hit=true"} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 1, strings.Count(out, "component="))
	assert.Contains(t, out, "component=report")
}

func TestStructuredLogger_LogErrorUsesGivenComponent(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, slog.LevelInfo))

	sl.LogError(context.Background(), "Publish failed", errors.New("broker down"), ComponentAMQP, OpPublish, NewFields())

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "component="))
	assert.Contains(t, out, "component=amqp")
	assert.Contains(t, out, `error="broker down"`)
}
