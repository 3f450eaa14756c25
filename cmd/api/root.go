package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/config"
	"github.com/spec-kit/logistics-ticketing/internal/events"
	"github.com/spec-kit/logistics-ticketing/internal/observability"
	"github.com/spec-kit/logistics-ticketing/internal/persistence"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	"github.com/spec-kit/logistics-ticketing/internal/repository/memstore"
	"github.com/spec-kit/logistics-ticketing/internal/service"
	"github.com/spec-kit/logistics-ticketing/internal/sla"
)

var rootCmd = &cobra.Command{
	Use:   "logistics-ticketing",
	Short: "Logistics ticketing service",
	Long:  `Ticket lifecycle, SLA tracking and response analytics for logistics departments.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedAdminCmd)
}

// application holds the wired service graph shared by every command.
type application struct {
	cfg         *config.Config
	logger      *zap.Logger
	postgres    *persistence.Postgres
	redis       *persistence.Redis
	store       repository.Store
	dispatcher  events.Dispatcher
	permissions *auth.PermissionEngine
	tokens      *auth.TokenManager
	sla         *service.SLATracker
	responses   *service.ResponseTimeAnalyzer
	tickets     *service.TicketService
	users       *service.UserService
	auth        *service.AuthService
}

// bootstrap loads configuration and wires services. Without POSTGRES_DSN the
// in-memory store is used.
func bootstrap(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	var store repository.Store
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger, false); err != nil {
				pg.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		store = repository.NewPostgresStore(pool)
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store = memstore.New()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)

	calendar, err := sla.NewCalendarFromConfig(cfg.Business, cfg.SLAPolicy)
	if err != nil {
		pg.Close()
		redis.Close()
		return nil, fmt.Errorf("invalid business calendar: %w", err)
	}

	permissions := auth.NewPermissionEngine(auth.NewRoleCatalog())
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditLogger(nil)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := &application{
		cfg:         cfg,
		logger:      logger,
		postgres:    pg,
		redis:       redis,
		store:       store,
		dispatcher:  dispatcher,
		permissions: permissions,
		tokens:      tokens,
	}
	app.sla = service.NewSLATracker(service.SLATrackerDependencies{
		Store:       store,
		Permissions: permissions,
		Calendar:    calendar,
		Policy:      sla.NewPolicy(cfg.SLAPolicy),
		Audit:       audit,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	app.responses = service.NewResponseTimeAnalyzer(service.ResponseAnalyzerDependencies{
		Store:       store,
		Permissions: permissions,
		Calendar:    calendar,
		Cache:       redis.AnalyticsCache(),
		CacheTTL:    cfg.Redis.AnalyticsCacheTTL(),
		Logger:      logger,
	})
	app.tickets = service.NewTicketService(service.TicketDependencies{
		Store:       store,
		Permissions: permissions,
		Codes:       service.NewTicketCodeGenerator(calendar.Location()),
		SLA:         app.sla,
		Responses:   app.responses,
		Audit:       audit,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	app.users = service.NewUserService(service.UserDependencies{
		Store:       store,
		Permissions: permissions,
		Audit:       audit,
		Dispatcher:  dispatcher,
		BcryptCost:  cfg.Auth.BcryptCost,
		Logger:      logger,
	})
	app.auth = service.NewAuthService(service.AuthDependencies{
		Store:      store,
		Tokens:     tokens,
		Audit:      audit,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	return app, nil
}

func (a *application) close() {
	a.redis.Close()
	a.postgres.Close()
	_ = a.logger.Sync()
}
