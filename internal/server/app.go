// Package server wires the gallery server together: storage backends,
// identity provider, services and the HTTP server, plus graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/inkstudio/internal/logging"
	"github.com/dmitrijs2005/inkstudio/internal/server/config"
	"github.com/dmitrijs2005/inkstudio/internal/server/httpserver"
	"github.com/dmitrijs2005/inkstudio/internal/server/identity"
	"github.com/dmitrijs2005/inkstudio/internal/server/metrics"
	"github.com/dmitrijs2005/inkstudio/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/inkstudio/internal/server/services"
	"github.com/dmitrijs2005/inkstudio/internal/server/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	http   *httpserver.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	repos, err := openRepositories(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("db migrate error: %w", err)
	}

	blobs, err := storage.NewS3Store(ctx, storage.Options{
		Region:        c.S3Region,
		AccessKey:     c.S3RootUser,
		SecretKey:     c.S3RootPassword,
		Endpoint:      c.S3BaseEndpoint,
		Bucket:        c.S3Bucket,
		PublicBaseURL: c.BlobPublicBaseURL,
	})
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("blob storage init error: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		// uploads fail until the bucket exists; the public feed still works
		logger.Warn(ctx, "blob bucket not ready", "bucket", c.S3Bucket, "error", err)
	}

	idp := identity.NewClient(c.IdentityBaseURL, c.IdentityAPIKey, &http.Client{Timeout: c.IdentityTimeout})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	srv := httpserver.New(c, httpserver.Deps{
		Admin:    services.NewAdminService(idp, c, logger),
		Gallery:  services.NewGalleryService(repos, blobs, c, m, logger),
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})

	return &App{config: c, logger: logger, repos: repos, http: srv}, nil
}

func openRepositories(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
	if repomanager.IsMemoryDSN(dsn) {
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	db, err := repomanager.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return repomanager.NewPostgresRepositoryManager(db), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		cancelFunc()
	}
}

// Run serves until the process is signalled or the server fails, then
// releases the repositories.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "closing repositories", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
