package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/septivank/smart-meter-api/internal/api"
	"github.com/septivank/smart-meter-api/internal/config"
	"github.com/septivank/smart-meter-api/internal/db"
	"github.com/septivank/smart-meter-api/internal/mq"
	"github.com/septivank/smart-meter-api/internal/repository"
	"github.com/septivank/smart-meter-api/internal/service"
	"github.com/septivank/smart-meter-api/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// initSchema applies the idempotent schema setup after the pool is reachable
// and before the listener starts accepting traffic
func initSchema(lc fx.Lifecycle, pool *db.Pool, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return db.InitSchema(ctx, pool, logger)
		},
	})
}

func startServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, router *gin.Engine) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServicePort),
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
			}
			logger.Info("http server listening", zap.Int("port", cfg.ServicePort))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideValidator creates a new submission validator instance
func ProvideValidator() *validator.Validator {
	return validator.NewValidator()
}

// ProvideEventPublisher wires the RabbitMQ accepted-event publisher, or
// returns nil when RABBITMQ_URL is unset
func ProvideEventPublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (service.EventPublisher, error) {
	if !cfg.EventsEnabled() {
		logger.Info("RABBITMQ_URL not set, event publishing disabled")
		return nil, nil
	}

	conn, err := mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})

	return publisher, nil
}

// ProvideIngestService creates a new ingestion service instance
func ProvideIngestService(
	repo *repository.Repository,
	publisher service.EventPublisher,
	v *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *service.IngestService {
	return service.NewIngestService(repo, publisher, v, cfg, logger)
}

// ProvideHandler creates a new API handler instance
func ProvideHandler(
	repo *repository.Repository,
	ingest *service.IngestService,
	cfg *config.Config,
	logger *zap.Logger,
) *api.Handler {
	return api.NewHandler(repo, ingest, cfg, logger)
}

// ProvideRouter builds the HTTP router
func ProvideRouter(h *api.Handler) *gin.Engine {
	return api.NewRouter(h)
}
