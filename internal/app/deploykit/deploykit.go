// Package deploykit assembles the HTTP control plane: storage,
// migrations, cache, services, the remote executor and the router.
package deploykit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/solusikonsep/deploykit/internal/cache"
	"github.com/solusikonsep/deploykit/internal/config"
	"github.com/solusikonsep/deploykit/internal/lib/jwt"
	"github.com/solusikonsep/deploykit/internal/migrations"
	"github.com/solusikonsep/deploykit/internal/runner"
	applicationservice "github.com/solusikonsep/deploykit/internal/services/application"
	authservice "github.com/solusikonsep/deploykit/internal/services/auth"
	paymentservice "github.com/solusikonsep/deploykit/internal/services/payment"
	subscriptionservice "github.com/solusikonsep/deploykit/internal/services/subscription"
	"github.com/solusikonsep/deploykit/internal/storage"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	executor, err := runner.NewExecutor(cfg.Runner, logger)
	if err != nil {
		return nil, err
	}

	subscriptionService := subscriptionservice.New(db, cacheRedis, logger)
	authService := authservice.New(db, subscriptionService, jwtMaker)
	paymentService := paymentservice.New(db, subscriptionService, logger)
	applicationService := applicationservice.New(db, subscriptionService, executor, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger,
		authService, subscriptionService, paymentService, applicationService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
