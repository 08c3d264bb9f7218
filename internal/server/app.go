// Package server wires the application together: configuration, database,
// migrations, services, image storage and the HTTP server, plus graceful
// shutdown and the background session sweeper.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/achildrenmile/qslcardgenerator/internal/logging"
	"github.com/achildrenmile/qslcardgenerator/internal/server/callsigns"
	"github.com/achildrenmile/qslcardgenerator/internal/server/config"
	"github.com/achildrenmile/qslcardgenerator/internal/server/httpapi"
	"github.com/achildrenmile/qslcardgenerator/internal/server/repositories"
	"github.com/achildrenmile/qslcardgenerator/internal/server/services"
	"github.com/achildrenmile/qslcardgenerator/internal/server/storage"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	sessions *services.SessionService
	audits   *services.AuditService
	handler  http.Handler

	closeDB func() error
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := repositories.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	rm := repositories.NewManager(cfg.DatabaseDSN)
	if err := repositories.RunMigrations(context.Background(), db, rm); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	users := services.NewUserService(db, rm, cfg)
	sessions := services.NewSessionService(db, rm, cfg)
	audits := services.NewAuditService(db, rm, logger)
	store := callsigns.NewStore(filepath.Join(cfg.DataDir, "callsigns.json"))

	var images storage.ImageStore
	if cfg.S3Bucket != "" {
		images, err = storage.NewS3(context.Background(), storage.S3Options{
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		logger.Info(context.Background(), "using s3 image storage", "bucket", cfg.S3Bucket)
	} else {
		images = storage.NewFilesystem(cfg.DataDir)
	}

	api := httpapi.NewServer(cfg, logger, users, sessions, audits, store, images)

	return &App{
		config:   cfg,
		logger:   logger,
		sessions: sessions,
		audits:   audits,
		handler:  api.Handler(),
		closeDB:  db.Close,
	}, nil
}

func (app *App) initSignalHandler(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancel()
	}()
}

// runSessionSweeper purges expired sessions on a fixed interval until the
// context is cancelled.
func (app *App) runSessionSweeper(ctx context.Context) {
	ticker := time.NewTicker(app.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.sessions.SweepExpired(ctx)
			if err != nil {
				app.logger.Error(ctx, "session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "swept expired sessions", "count", n)
			}
		}
	}
}

func (app *App) runHTTPServer(ctx context.Context, cancel context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.Addr,
		Handler: app.handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "listening", "addr", app.config.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancel()
	}
}

func (app *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.logger.Info(ctx, "starting app")
	app.initSignalHandler(cancel)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.audits.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runSessionSweeper(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runHTTPServer(ctx, cancel)
	}()

	wg.Wait()
	app.audits.Wait()

	if err := app.closeDB(); err != nil {
		app.logger.Error(context.Background(), "failed to close database", "error", err)
	}
	app.logger.Info(context.Background(), "shutdown complete")
}
