package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/assistant"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/navigation"
	"github.com/cmlre/marine-platform/internal/speech"
	"github.com/cmlre/marine-platform/internal/transport"
	"github.com/cmlre/marine-platform/internal/transport/rest"
	"github.com/cmlre/marine-platform/internal/transport/swagger"
	"github.com/cmlre/marine-platform/internal/user"
	"github.com/cmlre/marine-platform/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer(cmd.Context())
	},
}

func startHTTPServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.Configure(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format, os.Stdout)

	if _, err := swagger.Load(ctx); err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, lg, appOptions{})
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer app.Close()

	router := chi.NewRouter()
	setupRoutes(router, app)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Starting HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
		// abandon a reply that would otherwise hold its request open
		app.session.Cancel(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	lg.Info("Server stopped")
	return nil
}

// writeTimeout must outlast the assistant's response timeout, because a send
// holds its request open until the reply arrives.
func writeTimeout(cfg *internal.Config) time.Duration {
	wt := cfg.Server.WriteTimeout
	if floor := cfg.Assistant.ResponseTimeout + 5*time.Second; wt > 0 && wt < floor {
		return floor
	}
	return wt
}

func setupRoutes(router *chi.Mux, app *application) {
	base := transport.NewBaseHandler(app.logger)
	checker := auth.NewPermissionChecker()
	tokens := auth.NewJWTTokenGenerator(app.cfg.Security.JWTSecret, app.cfg.Security.AccessTokenDuration)

	handlers := rest.Handlers{
		Health:     rest.NewHealthHandler(app.healthChecks()),
		Auth:       auth.NewHandler(auth.NewService(app.store, tokens), app.logger),
		RBAC:       auth.NewRBACAuthorization(checker, app.logger),
		Navigation: navigation.NewHandler(base, navigation.NewGate(checker, app.logger)),
		Assistant:  assistant.NewHandler(base, app.session),
		Speech:     speech.NewHandler(base, app.coordinator),
	}
	if app.accounts != nil {
		handlers.Users = user.NewHandler(base, app.accounts)
	}

	metricsPath := ""
	if app.cfg.Observability.Metrics.Enabled {
		metricsPath = app.cfg.Observability.Metrics.Path
	}
	rest.RegisterAllRoutes(router, handlers, rest.Options{
		AllowedOrigins: app.cfg.Server.AllowedOrigins,
		Metrics:        app.metrics,
		MetricsPath:    metricsPath,
		Logger:         app.logger,
	})
	app.logger.Debug("routes registered")
}
