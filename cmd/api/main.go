// Command api serves the bizdesk credential and customer directory HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/bizdesk/customer-service/internal/api"
	"github.com/bizdesk/customer-service/internal/api/handler"
	"github.com/bizdesk/customer-service/internal/core/ports"
	"github.com/bizdesk/customer-service/internal/core/service"
	mongostore "github.com/bizdesk/customer-service/internal/infrastructure/db/mongo"
	redisstore "github.com/bizdesk/customer-service/internal/infrastructure/db/redis"
	"github.com/bizdesk/customer-service/internal/infrastructure/db/sqlstore"
	"github.com/bizdesk/customer-service/internal/infrastructure/queue"
	"github.com/bizdesk/customer-service/internal/infrastructure/ratelimit"
	"github.com/bizdesk/customer-service/internal/infrastructure/token"
	"github.com/bizdesk/customer-service/internal/pkg/config"
	"github.com/bizdesk/customer-service/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bizdesk: %v\n", err)
		os.Exit(1)
	}
}

// backend bundles the repositories of the selected store driver.
type backend struct {
	users     ports.UserRepository
	customers ports.CustomerRepository
	pinger    handler.Pinger
	close     func(context.Context) error
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: cfg.ServiceName,
	})

	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("store close")
		}
	}()

	readiness := map[string]handler.Pinger{"store": store.pinger}

	deps := api.Dependencies{
		OpenRegistration: cfg.Auth.OpenRegistration,
		TrustProxy:       cfg.TrustProxy,
		Readiness:        readiness,
		Swagger:          cfg.SwaggerEnabled,
		Logger:           log,
	}

	if cfg.Redis.Addr != "" {
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		readiness["redis"] = redisstore.Pinger{Client: client}

		if cfg.RateLimit.Enabled {
			deps.LoginLimiter = redisstore.NewLoginLimiter(client, cfg.RateLimit.Capacity, cfg.RateLimit.RefillInterval)
			log.Info().Msg("login rate limiting backed by redis")
		}
	} else if cfg.RateLimit.Enabled {
		bucket := ratelimit.NewTokenBucket(cfg.RateLimit.Capacity, cfg.RateLimit.RefillInterval)
		go bucket.Run(ctx)
		deps.LoginLimiter = bucket
		log.Info().Msg("login rate limiting kept in memory")
	}

	var events ports.CustomerEventPublisher
	if cfg.RabbitMQ.URL != "" {
		publisher, err := queue.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		readiness["rabbitmq"] = publisher

		dispatcher := queue.NewDispatcher(cfg.RabbitMQ.Workers, publisher, log)
		// Queued events are still delivered while shutting down.
		dispatcher.Start(context.WithoutCancel(ctx))
		defer dispatcher.Close()
		events = dispatcher
	}

	tokens := token.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	authService := service.NewAuthService(store.users, tokens, log)
	if cfg.Auth.BootstrapAdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminName, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	deps.Auth = authService
	deps.Customers = service.NewCustomerService(store.customers, events, log)
	deps.Tokens = tokens

	e := api.NewRouter(deps)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	if cfg.Store.Driver == config.DriverMongo {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		users := mongostore.NewUserRepository(db)
		customers := mongostore.NewCustomerRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		if err := customers.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo store")
		return &backend{
			users:     users,
			customers: customers,
			pinger:    mongostore.Pinger{Client: client},
			close:     client.Disconnect,
		}, nil
	}

	store, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, sqlstore.Options{
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, err
	}
	if cfg.Store.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return &backend{
		users:     store,
		customers: store,
		pinger:    store,
		close:     func(context.Context) error { return store.Close() },
	}, nil
}
