package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"civicreport-be/config"
	"civicreport-be/controllers"
	"civicreport-be/jobs"
	"civicreport-be/middlewares"
	"civicreport-be/routes"
	"civicreport-be/services"
	"civicreport-be/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type app struct {
	cfg         config.Config
	log         zerolog.Logger
	store       *store.Store
	issues      *services.IssueRepository
	archive     *services.ArchiveService
	departments *services.DepartmentCatalog
	limiter     *redis.Client
}

// newApp loads configuration, opens the record store and makes sure every
// collection exists before anything reads it.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := config.NewLogger(cfg)

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	archive := services.NewArchiveService(st, nil, log)
	departments := services.NewDepartmentCatalog(st, log)
	a := &app{
		cfg:         cfg,
		log:         log,
		store:       st,
		archive:     archive,
		issues:      services.NewIssueRepository(st, archive, nil, nil, log),
		departments: departments,
	}
	if err := services.Bootstrap(ctx, st, departments); err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize collections: %w", err)
	}

	if cfg.IssueRateLimit > 0 {
		client, err := config.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect rate limiter: %w", err)
		}
		a.limiter = client
	}
	return a, nil
}

func (a *app) router() (*gin.Engine, error) {
	uploads, err := controllers.NewUploadController(a.cfg.Uploads.Dir, a.cfg.Uploads.MaxFiles, a.log)
	if err != nil {
		return nil, err
	}
	deps := routes.Deps{
		Config:      a.cfg,
		Log:         a.log,
		Issues:      controllers.NewIssueController(a.issues, a.archive, a.cfg.RequestTimeout, a.log),
		Departments: controllers.NewDepartmentController(a.departments),
		Uploads:     uploads,
	}
	if a.limiter != nil {
		deps.IssueLimiter = middlewares.IssueRateLimiter(a.limiter, a.cfg.RateLimitPrefix, a.cfg.IssueRateLimit, a.cfg.RateLimitWindow)
	}
	return routes.NewRouter(deps), nil
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
func (a *app) Serve(ctx context.Context) error {
	r, err := a.router()
	if err != nil {
		return err
	}

	if a.cfg.ArchiveCron != "" {
		job, err := jobs.NewArchiveCron(a.cfg.ArchiveCron, a.archive, a.log)
		if err != nil {
			return err
		}
		job.Start()
		defer job.Stop()
		a.log.Info().Str("schedule", a.cfg.ArchiveCron).Msg("archive cron started")
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.HTTPAddr).Str("driver", a.cfg.Store.Driver).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		a.log.Info().Msg("shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *app) Close() {
	if a.limiter != nil {
		if err := a.limiter.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close redis")
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close store")
	}
}
