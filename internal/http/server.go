package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/benbjohnson/hashfs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"churchadmin/internal/amqp"
	"churchadmin/internal/auth"
	"churchadmin/internal/backend"
	"churchadmin/internal/cache"
	"churchadmin/internal/form"
	"churchadmin/internal/log"
	"churchadmin/internal/metrics"
	"churchadmin/internal/middleware/ratelimit"
	"churchadmin/internal/middleware/security"
	"churchadmin/internal/middleware/trace"
	"churchadmin/internal/mutation"
	"churchadmin/internal/query"
	"churchadmin/internal/uistate"
	"churchadmin/internal/upload"
	appweb "churchadmin/web"
)

// ReportPublisher queues spreadsheet exports for the worker.
type ReportPublisher interface {
	PublishReport(ctx context.Context, msg *amqp.ReportRequest) error
}

type Options struct {
	Addr    string
	Timings form.Timings

	SessionTTL time.Duration
	FormTTL    time.Duration
	CacheTTL   time.Duration
	CacheSize  int

	RateLimitPerMinute int
	SecureCookies      bool

	MaxFilesPerForm int
	MaxFileBytes    int

	// CleanupInterval is how often expired sessions, forms and cache
	// entries are swept. Zero disables the background sweep.
	CleanupInterval time.Duration
	Clock           func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Addr:               ":8081",
		Timings:            form.DefaultTimings(),
		SessionTTL:         12 * time.Hour,
		FormTTL:            30 * time.Minute,
		CacheTTL:           5 * time.Minute,
		CacheSize:          500,
		RateLimitPerMinute: 120,
		MaxFilesPerForm:    5,
		MaxFileBytes:       5 << 20,
		CleanupInterval:    10 * time.Minute,
	}
}

type Server struct {
	http.Server
	backend   backend.Backend
	logger    *log.Logger
	templates *template.Template
	assets    *hashfs.FS

	sessions  *auth.Store
	forms     *form.Registry
	previews  *upload.Previews
	queries   *query.Cache
	mutations *mutation.Runner
	ui        *uistate.Store
	reports   ReportPublisher

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager

	opts         Options
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer wires the console over be. reports may be nil when AMQP is not
// configured; spreadsheet exports are then refused.
func NewServer(opts Options, be backend.Backend, reports ReportPublisher, logger *log.Logger) (*Server, error) {
	def := DefaultOptions()
	if opts.Timings == (form.Timings{}) {
		opts.Timings = def.Timings
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = def.SessionTTL
	}
	if opts.FormTTL <= 0 {
		opts.FormTTL = def.FormTTL
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = def.CacheTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = def.CacheSize
	}
	if opts.MaxFilesPerForm <= 0 {
		opts.MaxFilesPerForm = def.MaxFilesPerForm
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = def.MaxFileBytes
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if logger == nil {
		logger = log.Discard()
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		backend:  be,
		logger:   httpLogger,
		previews: upload.NewPreviews(opts.MaxFilesPerForm, opts.MaxFileBytes),
		queries:  query.New(opts.CacheSize, opts.CacheTTL, logger.WithComponent(log.ComponentCache).Slog()),
		ui:       uistate.New(),
		reports:  reports,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Now:               opts.Clock,
		}),
		detector: security.NewDetector(),
		caches:   cache.NewManager(logger.WithComponent(log.ComponentCache).Slog()),
		opts:     opts,
		started:  opts.Clock(),
	}
	s.sessions = auth.NewStore(opts.CacheSize, opts.SessionTTL,
		auth.WithClock(opts.Clock),
		auth.WithSecureCookies(opts.SecureCookies),
		auth.WithOnEnd(s.sessionEnded),
	)
	s.forms = form.NewRegistry(opts.CacheSize, opts.FormTTL, s.previews,
		logger.WithComponent(log.ComponentForm).Slog())
	s.mutations = mutation.NewRunner(be, s.queries, logger)
	s.tracer = trace.NewMiddleware(httpLogger, s.detector.ExtractClientIP)

	var err error
	if s.assets, err = staticAssets(); err != nil {
		return nil, err
	}
	if s.templates, err = parseTemplates(s.assets); err != nil {
		return nil, err
	}

	s.caches.Register(s.sessions)
	s.caches.Register(s.forms)
	s.caches.Register(s.queries)
	s.caches.Register(s.limiter)
	if opts.CleanupInterval > 0 {
		s.caches.StartCleanup(opts.CleanupInterval)
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func staticAssets() (*hashfs.FS, error) {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	return hashfs.NewFS(sub), nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Handler)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, true, s.handleRateLimited))

	static := security.StaticAssetMiddleware(3600)(hashfs.FileServer(s.assets))
	r.Handle("/static/*", http.StripPrefix("/static/", static))

	r.Get("/", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)
		r.Use(security.NoStore)

		r.Get("/dashboard", s.handleDashboard)

		r.Route("/forms/{formID}", func(r chi.Router) {
			r.Get("/", s.handleFormView)
			r.Delete("/", s.handleFormClose)
			r.Post("/change", s.handleFormChange)
			r.Post("/submit", s.handleFormSubmit)
			r.Post("/files", s.handleFileAdd)
			r.Delete("/files/{handle}", s.handleFileRemove)
		})
		r.Get("/previews/{handle}", s.handlePreview)
		r.Get("/options/{kind}", s.handleOptions)
		r.Post("/ui/filters/{kind}/toggle", s.handleToggleFilters)

		r.Route("/{kind}", func(r chi.Router) {
			r.Use(kindCtx)
			r.Get("/", s.handleList)
			r.Get("/table", s.handleTable)
			r.Get("/new", s.handleNewForm)
			r.Get("/{id}/edit", s.handleEditForm)
			r.Get("/{id}/inactivate", s.handleInactivateForm)
			r.Get("/report", s.handleReportXLSX)
			r.Post("/report/sheets", s.handleReportSheets)
		})
	})

	return gziphandler.GzipHandler(r)
}

// Shutdown stops the cache sweeper and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
