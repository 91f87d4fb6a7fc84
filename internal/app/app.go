package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/munreg/internal/auth"
	"github.com/abrezinsky/munreg/internal/config"
	"github.com/abrezinsky/munreg/internal/handlers"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/mailqueue"
	"github.com/abrezinsky/munreg/internal/metrics"
	"github.com/abrezinsky/munreg/internal/repository"
	"github.com/abrezinsky/munreg/internal/services"
	"github.com/abrezinsky/munreg/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

// App holds all application dependencies
type App struct {
	log      logger.Logger
	cfg      *config.Config
	repo     *repository.Repository
	metrics  *metrics.Metrics
	auth     *auth.Auth
	hub      *websocket.Hub
	handlers *handlers.Handlers
	mailConn io.Closer

	Catalog       *services.CatalogService
	Registrations *services.RegistrationService
	Allocator     *services.Allocator
	Rosters       *services.RosterService
	Notifier      *services.Notifier
	Badges        *services.BadgeService

	stopHub context.CancelFunc
	closing sync.Once
}

// New creates and initializes a new application instance from cfg
func New(ctx context.Context, log logger.Logger, cfg *config.Config) (*App, error) {
	repo, err := repository.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	queue, lister, mailConn, err := newMailQueue(ctx, cfg.Mail, repo)
	if err != nil {
		repo.Close()
		return nil, err
	}

	m := metrics.New()

	// Initialize services
	catalog := services.NewCatalogService(log, repo)
	registrations := services.NewRegistrationService(log, repo, m, cfg.Allocator.MaxAttempts, cfg.Notifier.Workers)
	allocator := services.NewAllocator(log, repo, m, services.AllocatorOptions{MaxAttempts: cfg.Allocator.MaxAttempts})
	rosters := services.NewRosterService(log, repo)
	notifier := services.NewNotifier(log, repo, queue, m, services.NotifierOptions{
		Workers: cfg.Notifier.Workers,
		Timeout: cfg.Notifier.Timeout,
	})
	badges := services.NewBadgeService(log, repo)

	// WebSocket hub pushes committed seat changes to admin clients
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.New(log, rosters)
	hub.Start(hubCtx)

	allocator.SetNotifier(notifier)
	allocator.SetBroadcaster(hub)

	authn := auth.New(log, cfg.JWTSecret, cfg.JWTIssuer, cfg.AdminEmails)
	h := handlers.New(log, handlers.Services{
		Catalog:       catalog,
		Registrations: registrations,
		Allocator:     allocator,
		Rosters:       rosters,
		Notifier:      notifier,
		Badges:        badges,
	}, authn, lister, repo, m.Handler(), hub.ServeWs)

	return &App{
		log:           log,
		cfg:           cfg,
		repo:          repo,
		metrics:       m,
		auth:          authn,
		hub:           hub,
		handlers:      h,
		mailConn:      mailConn,
		Catalog:       catalog,
		Registrations: registrations,
		Allocator:     allocator,
		Rosters:       rosters,
		Notifier:      notifier,
		Badges:        badges,
		stopHub:       stopHub,
	}, nil
}

// newMailQueue builds the configured queue. The returned closer is nil for
// the SQLite outbox, which shares the repository connection.
func newMailQueue(ctx context.Context, cfg config.MailConfig, repo *repository.Repository) (mailqueue.Queue, mailqueue.Lister, io.Closer, error) {
	switch cfg.Backend {
	case config.MailBackendRedis:
		client, err := mailqueue.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, nil, err
		}
		queue := mailqueue.NewRedisQueue(client, cfg.RedisKey)
		return queue, queue, client, nil
	case config.MailBackendSQLite, "":
		queue := mailqueue.NewOutboxQueue(repo)
		return queue, queue, nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown mail backend %q", cfg.Backend)
	}
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Auth returns the token verifier, also used to mint development tokens
func (a *App) Auth() *auth.Auth {
	return a.auth
}

// Metrics returns the application metrics
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// SeedCatalogFile loads the committee catalog from a YAML file
func (a *App) SeedCatalogFile(ctx context.Context, path string, force bool) (*services.SeedResult, error) {
	committees, err := services.LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return a.Catalog.Seed(ctx, committees, force)
}

// Run serves HTTP on addr until ctx is canceled, then shuts down gracefully
func (a *App) Run(ctx context.Context, addr string) error {
	committees, err := a.Catalog.ListCommittees(ctx)
	if err != nil {
		return err
	}
	if len(committees) == 0 {
		a.log.Warn("committee catalog is empty, run the seed command before opening registration")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("server starting", "addr", addr, "committees", len(committees))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close performs graceful shutdown of app resources: the hub stops, queued
// notifications drain, then the stores close.
func (a *App) Close() error {
	var errs []error
	a.closing.Do(func() {
		a.stopHub()
		<-a.hub.Done()
		a.Notifier.Close()
		if a.mailConn != nil {
			if err := a.mailConn.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := a.repo.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
