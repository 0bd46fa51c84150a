// Package admin provides the REST API for managing the proxy
// configuration: snapshot views, group and rule editing, modification
// save/replay and subscription refresh.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/clashdesk/clashdesk/pkg/logging"
	"github.com/clashdesk/clashdesk/pkg/manager"
)

// API exposes the configuration manager over HTTP.
type API struct {
	manager    *manager.Manager
	httpServer *http.Server
	addr       string
	startTime  time.Time
	log        *slog.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		if log != nil {
			a.log = log
		}
	}
}

// WithTimeouts overrides the HTTP server read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(a *API) {
		a.readTimeout = read
		a.writeTimeout = write
	}
}

// New creates the admin API listening on addr.
func New(addr string, mgr *manager.Manager, opts ...Option) *API {
	a := &API{
		manager:      mgr,
		addr:         addr,
		log:          logging.Nop(),
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}

	mux := http.NewServeMux()
	a.registerRoutes(mux)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.withMiddleware(mux),
		ReadTimeout:  a.readTimeout,
		WriteTimeout: a.writeTimeout,
	}
	return a
}

// Handler returns the fully wired HTTP handler, for tests and embedding.
func (a *API) Handler() http.Handler {
	return a.httpServer.Handler
}

// Start begins serving in the background.
func (a *API) Start() error {
	a.startTime = time.Now()
	a.log.Info("starting admin API", "addr", a.addr)
	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("admin API error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (a *API) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.httpServer.Shutdown(ctx)
}

// Uptime returns the API uptime in seconds.
func (a *API) Uptime() int {
	if a.startTime.IsZero() {
		return 0
	}
	return int(time.Since(a.startTime).Seconds())
}
