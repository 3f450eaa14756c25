package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/logistics-ticketing/internal/api/http"
	"github.com/spec-kit/logistics-ticketing/internal/api/http/handlers"
	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/observability"
	"github.com/spec-kit/logistics-ticketing/internal/service"
	"github.com/spec-kit/logistics-ticketing/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close()
	logger := app.logger

	notifications := service.NewNotificationService(app.dispatcher, logger, app.cfg.Notification)
	worker.StartNotificationWorker(ctx, notifications)

	metrics := observability.NewMetrics()
	server := fiber.New(fiber.Config{AppName: app.cfg.App.Name})
	httptransport.RegisterMiddlewares(server, logger, metrics, app.cfg.App.RequestTimeout())

	readiness := map[string]handlers.Pinger{"store": app.store}
	if app.redis.Enabled() {
		readiness["redis"] = app.redis
	}

	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(app.cfg.App.Name, app.cfg.App.Version, readiness),
		Users:          handlers.NewUsersHandler(app.auth, app.users),
		Tickets:        handlers.NewTicketsHandler(app.tickets, app.sla, logger),
		Analytics:      handlers.NewAnalyticsHandler(app.responses, app.sla),
		AuthMiddleware: auth.NewAuthMiddleware(app.tokens, app.store.Repos().Users),
		Catalog:        app.permissions.Catalog(),
		Metrics:        metrics,
	})

	go func() {
		if err := server.Listen(app.cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()
	return server.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
