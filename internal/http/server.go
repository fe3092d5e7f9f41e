package http

import (
	"context"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"occupancy/internal/core"
	"occupancy/internal/log"
	"occupancy/internal/metrics"
	"occupancy/internal/middleware/ratelimit"
	"occupancy/internal/middleware/security"
	"occupancy/internal/middleware/trace"
	"occupancy/internal/services"
	"occupancy/internal/sheets"
	"occupancy/internal/storage"
	appweb "occupancy/web"
)

const (
	handlerTimeout = 7 * time.Second
	staticMaxAge   = 3600
)

// Importer stores uploaded sheets.
type Importer interface {
	Import(ctx context.Context, name string, r io.Reader) (core.SheetInfo, error)
}

// Reporter answers month queries.
type Reporter interface {
	MonthReport(ctx context.Context, sheetID string, q core.YearMonth) (services.SheetReport, error)
	YearReports(ctx context.Context, sheetID string, year int) (core.SheetInfo, []core.MonthReport, error)
	TotalCapacity() int
}

// SnapshotLister is implemented by backends that keep worker snapshots.
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, sheetID string) ([]storage.Snapshot, error)
}

// Pinger is implemented by backends with a health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the server. Snapshots and Pinger may be nil.
type Deps struct {
	Importer  Importer
	Reports   Reporter
	Lister    sheets.SheetLister
	Snapshots SnapshotLister
	Pinger    Pinger
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

// Options tune the HTTP surface.
type Options struct {
	Addr               string
	MaxUploadBytes     int64
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template

	importer  Importer
	reports   Reporter
	lister    sheets.SheetLister
	snapshots SnapshotLister
	pinger    Pinger
	metrics   *metrics.Metrics
	logger    *log.Logger

	limiter        *ratelimit.Limiter
	detector       *security.Detector
	maxUploadBytes int64
	now            func() time.Time
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server. Call RunMaintenance alongside ListenAndServe.
func NewServer(opts Options, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	s := &Server{
		importer:       deps.Importer,
		reports:        deps.Reports,
		lister:         deps.Lister,
		snapshots:      deps.Snapshots,
		pinger:         deps.Pinger,
		metrics:        deps.Metrics,
		logger:         deps.Logger.WithComponent(log.ComponentHTTP),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:       security.NewDetector(),
		maxUploadBytes: opts.MaxUploadBytes,
		now:            time.Now,
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = metrics.Middleware(s.metrics)(mux)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(s.onSuspicious)(handler)
	handler = trace.NewMiddleware(s.detector.ExtractClientIP).Middleware(handler)
	handler = log.Middleware(deps.Logger)(handler)

	s.Server = http.Server{
		Addr:    opts.Addr,
		Handler: handler,

		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)
	noStore := security.NoStoreMiddleware

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.Handle("GET /{$}", limit(http.HandlerFunc(s.handleIndex)))
	mux.Handle("POST /sheets", limit(http.HandlerFunc(s.handleUploadSheet)))
	mux.Handle("GET /ui/report", limit(noStore(http.HandlerFunc(s.handleReportPartial))))

	mux.Handle("GET /api/report", limit(noStore(http.HandlerFunc(s.handleReportJSON))))
	mux.Handle("GET /api/report/year", limit(noStore(http.HandlerFunc(s.handleYearJSON))))
	mux.Handle("GET /api/sheets", limit(http.HandlerFunc(s.handleListSheets)))
	mux.Handle("GET /api/sheets/{id}/snapshots", limit(http.HandlerFunc(s.handleListSnapshots)))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())
}

// RunMaintenance drops idle rate limiter clients until ctx is done.
func (s *Server) RunMaintenance(ctx context.Context) {
	s.limiter.Run(ctx)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited.Inc()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

func (s *Server) onSuspicious(r *http.Request, reason string) {
	s.metrics.SuspiciousRequests.Inc()
	s.logger.WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
		"reason", reason,
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			log.FromContext(ctx).ErrorContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
