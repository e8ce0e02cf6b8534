// Package httpserver exposes the gallery over HTTP: the public feed, the
// admin login/logout endpoints, the guarded admin API and the pages.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/inkstudio/internal/logging"
	"github.com/dmitrijs2005/inkstudio/internal/server/config"
	"github.com/dmitrijs2005/inkstudio/internal/server/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

const shutdownTimeout = 5 * time.Second

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Admin    AdminService
	Gallery  GalleryService
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   logging.Logger
}

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func New(cfg *config.Config, d Deps) *Server {
	logger := d.Logger.With("module", "http_server")
	secure := cfg.IsProduction()

	h := &handlers{
		admin:         d.Admin,
		gallery:       d.Gallery,
		logger:        logger,
		secure:        secure,
		uploadMaxSize: cfg.UploadMaxSize,
	}
	p := &pages{gallery: d.Gallery, logger: logger}
	guard := NewGuard(d.Admin, d.Metrics, logger, secure)

	mux := http.NewServeMux()

	publicCORS := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	feed := publicCORS.Handler(http.HandlerFunc(h.galleryPage))
	mux.Handle("GET /api/gallery", feed)
	mux.Handle("OPTIONS /api/gallery", feed)

	mux.HandleFunc("POST /api/admin/login", h.login)
	mux.HandleFunc("POST /api/admin/logout", h.logout)

	mux.Handle("GET /api/admin/gallery", guard.API(http.HandlerFunc(h.listAll)))
	mux.Handle("GET /api/admin/stats", guard.API(http.HandlerFunc(h.stats)))
	mux.Handle("POST /api/admin/gallery", guard.API(http.HandlerFunc(h.create)))
	mux.Handle("PATCH /api/admin/gallery/{id}", guard.API(http.HandlerFunc(h.update)))
	mux.Handle("DELETE /api/admin/gallery/{id}", guard.API(http.HandlerFunc(h.remove)))
	mux.Handle("POST /api/admin/gallery/delete", guard.API(http.HandlerFunc(h.removeMany)))
	mux.Handle("PUT /api/admin/gallery/order", guard.API(http.HandlerFunc(h.reorder)))
	mux.Handle("POST /api/admin/gallery/upload", guard.API(http.HandlerFunc(h.upload)))

	mux.HandleFunc("GET /{$}", p.index)
	mux.HandleFunc("GET /admin/login", p.login)
	mux.HandleFunc("GET /admin", p.admin)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = guard.Pages(handler)
	handler = recoverer(logger)(handler)
	handler = accessLog(logger, d.Metrics)(handler)

	return &Server{
		address: cfg.EndpointAddrHTTP,
		handler: handler,
		logger:  logger,
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
