package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	goEMS "github.com/MrEthical07/goEMS"
	"github.com/MrEthical07/goEMS/metrics/export/prometheus"
	"github.com/MrEthical07/goEMS/middleware"
)

// Handler serves the session facade for one [goEMS.Client].
type Handler struct {
	client    *goEMS.Client
	logger    *slog.Logger
	loginPath string
	now       func() time.Time
	metrics   http.Handler
}

// Options configures a [Handler].
type Options struct {
	Logger    *slog.Logger
	LoginPath string
	Now       func() time.Time
}

// NewHandler binds a Handler to client.
func NewHandler(client *goEMS.Client, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = middleware.DefaultLoginPath
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		client:    client,
		logger:    logger.With("component", "httpapi"),
		loginPath: loginPath,
		now:       now,
		metrics:   prometheus.NewExporter(client).Handler(),
	}
}

// NewRouter registers every route and the middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)

	store := h.client.Store()

	r.Get("/healthz", h.healthz)
	r.Get("/metrics", h.metrics.ServeHTTP)
	r.Get(h.loginPath, h.loginPage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.session)
		r.Post("/session/login", h.login)
		r.Post("/session/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLogin(store, h.loginPath))
			r.Get("/menu", h.menu)
			r.Post("/attendance/check-in", h.checkIn)
			r.Post("/attendance/check-out", h.checkOut)
			r.Get("/projects/options", h.projectOptions)
			r.Post("/projects", h.createProject)
		})
	})

	// Pages: everything else is a client route guarded by login and role.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(store, h.loginPath))
		r.Use(middleware.RequireRoute(store))
		r.Get("/*", h.page)
	})

	return r
}
