package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := pflag.String("env-file", ".env", "optional dotenv file loaded before the environment")
	migrateOnly := pflag.Bool("migrate-only", false, "apply Postgres migrations and exit")
	pflag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx, *envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if *migrateOnly {
		if err := migrate(ctx, cfg, logger); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		return
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer st.close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	if redis != nil {
		st.checks["redis"] = redis
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   st.users,
		Tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
		Limiter:    service.NewLoginLimiter(redis.Handle(), cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow(), logger),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: st.tickets,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	validate := handlers.NewValidator()
	app := httptransport.NewApp(httptransport.AppConfig{
		Name:           cfg.App.Name,
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Routes: httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, st.checks),
			Auth:           handlers.NewAuthHandler(authService, validate),
			Tickets:        handlers.NewTicketsHandler(ticketService, validate),
			AuthMiddleware: auth.NewAuthMiddleware(authService),
			Metrics:        metrics,
		},
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// store is the repository pair selected by STORE_DRIVER plus its health checks.
type store struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
	checks  map[string]handlers.Pinger
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	timeout := cfg.Store.Timeout()

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		db := pg.SQLDB()
		return &store{
			users:   repository.NewUserRepository(db, timeout),
			tickets: repository.NewTicketRepository(db, timeout),
			checks:  map[string]handlers.Pinger{"postgres": pg},
			close:   pg.Close,
		}, nil

	case config.StoreDriverMongo:
		m, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		users := repository.NewMongoUserRepository(m.DB, timeout)
		tickets := repository.NewMongoTicketRepository(m.DB, timeout)
		for _, ensure := range []func(context.Context) error{users.EnsureIndexes, tickets.EnsureIndexes} {
			if err := ensure(ctx); err != nil {
				m.Close(ctx)
				return nil, fmt.Errorf("mongo indexes: %w", err)
			}
		}
		return &store{
			users:   users,
			tickets: tickets,
			checks:  map[string]handlers.Pinger{"mongo": m},
			close:   func() { m.Close(context.Background()) },
		}, nil

	default:
		logger.Warn("using in-memory store; data is lost on restart")
		mem := repository.NewMemoryStore()
		return &store{
			users:   mem.Users(),
			tickets: mem.Tickets(),
			checks:  map[string]handlers.Pinger{},
			close:   func() {},
		}, nil
	}
}

func migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Store.Driver != config.StoreDriverPostgres {
		return fmt.Errorf("--migrate-only requires STORE_DRIVER=postgres, got %q", cfg.Store.Driver)
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	return persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
