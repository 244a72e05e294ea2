package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/assistant"
	"github.com/cmlre/marine-platform/internal/auth"
	authPostgres "github.com/cmlre/marine-platform/internal/auth/postgres"
	authRedis "github.com/cmlre/marine-platform/internal/auth/redis"
	"github.com/cmlre/marine-platform/internal/core/events"
	"github.com/cmlre/marine-platform/internal/metrics"
	"github.com/cmlre/marine-platform/internal/responder"
	"github.com/cmlre/marine-platform/internal/speech"
	"github.com/cmlre/marine-platform/internal/transport/rest"
	"github.com/cmlre/marine-platform/internal/user"
	userPostgres "github.com/cmlre/marine-platform/internal/user/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// application is the wired process shared by the server and chat commands.
type application struct {
	cfg    *internal.Config
	logger *slog.Logger

	metrics *metrics.Metrics
	bus     *events.EventBus

	gormDB *gorm.DB
	db     *sqlx.DB
	redis  *redis.Client

	store       *auth.Store
	accounts    *user.Service
	session     *assistant.Session
	coordinator *speech.Coordinator

	closers []func() error
}

type appOptions struct {
	// ephemeral keeps the session slot in memory and skips the database.
	ephemeral bool
	registry  prometheus.Registerer
}

func newApplication(ctx context.Context, cfg *internal.Config, lg *slog.Logger, opts appOptions) (app *application, err error) {
	app = &application{cfg: cfg, logger: lg}
	defer func() {
		if err != nil {
			app.Close()
			app = nil
		}
	}()

	if cfg.Observability.Metrics.Enabled {
		reg := opts.registry
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		app.metrics = metrics.NewMetrics(reg)
	}

	app.bus = events.NewEventBus(lg)
	subscribeAudit(app.bus, lg)

	if !opts.ephemeral {
		gormDB, db, err := openDatabase(cfg.Database, lg)
		if err != nil {
			return app, fmt.Errorf("failed to initialize database: %w", err)
		}
		app.gormDB, app.db = gormDB, db
		app.closers = append(app.closers, db.Close)
		app.accounts = user.NewService(userPostgres.NewUserRepository(db), cfg.Security.BCryptCost, lg)
	}

	slot, err := app.slotRepository(ctx, opts.ephemeral)
	if err != nil {
		return app, err
	}

	authn, err := app.authenticator()
	if err != nil {
		return app, err
	}

	app.store = auth.NewStore(auth.StoreConfig{SlotKey: cfg.Session.SlotKey}, slot, authn, app.bus, app.metrics, lg)

	generator, err := responder.NewGenerator(ctx, cfg.Assistant, lg)
	if err != nil {
		return app, fmt.Errorf("failed to initialize response generator: %w", err)
	}

	engine, err := speech.NewEngine(cfg.Speech, lg)
	if err != nil {
		// a host without the speech binary still runs, just without audio
		lg.WarnContext(ctx, "speech disabled", "engine", cfg.Speech.Engine, "error", err)
		engine = speech.NullEngine{}
	}
	app.coordinator = speech.NewCoordinator(engine, speech.Voice{
		Rate:  cfg.Speech.Rate,
		Pitch: cfg.Speech.Pitch,
	}, app.metrics, lg)
	app.closers = append(app.closers, func() error {
		app.coordinator.Close()
		return nil
	})

	app.session = assistant.NewSession(assistant.Config{
		Name:            cfg.Assistant.Name,
		ResponseTimeout: cfg.Assistant.ResponseTimeout,
	}, app.store, generator, app.coordinator, app.metrics, lg)
	app.coordinator.Attach(app.session)
	unsubscribe := app.session.Subscribe(app.bus)
	app.closers = append(app.closers, func() error {
		unsubscribe()
		return nil
	})

	// subscribers are in place, so a restored session is greeted
	app.store.Restore(ctx)
	return app, nil
}

func (a *application) slotRepository(ctx context.Context, ephemeral bool) (auth.SlotRepository, error) {
	backend := a.cfg.Session.Backend
	if ephemeral {
		backend = "memory"
	}

	switch backend {
	case "memory":
		return auth.NewMemorySlot(), nil
	case "database":
		if a.gormDB == nil {
			return nil, errors.New("session backend database needs a database connection")
		}
		return authPostgres.NewSlotRepository(a.gormDB), nil
	case "redis":
		rc := a.cfg.Session.Redis
		client, err := authRedis.Connect(ctx, authRedis.Config{Addr: rc.Addr, DB: rc.DB, Timeout: rc.Timeout})
		if err != nil {
			return nil, fmt.Errorf("failed to connect session redis: %w", err)
		}
		a.redis = client
		a.closers = append(a.closers, client.Close)
		return authRedis.NewSlotRepository(client, rc.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported session backend %q", backend)
	}
}

func (a *application) authenticator() (auth.Authenticator, error) {
	switch a.cfg.Auth.Mode {
	case "", "mock":
		return auth.NewMockAuthenticator(), nil
	case "accounts":
		if a.accounts == nil {
			return nil, errors.New("auth mode accounts needs a database connection")
		}
		return auth.NewAccountAuthenticator(a.accounts), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", a.cfg.Auth.Mode)
	}
}

// healthChecks lists the dependencies this process actually opened.
func (a *application) healthChecks() map[string]rest.CheckFunc {
	checks := map[string]rest.CheckFunc{}
	if a.db != nil {
		checks["database"] = rest.DatabaseCheck(a.db.DB)
	}
	if a.redis != nil {
		checks["redis"] = rest.RedisCheck(a.redis)
	}
	return checks
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close failed", "error", err)
		}
	}
	a.closers = nil
	if a.bus != nil {
		a.bus.Wait()
	}
}

// subscribeAudit records every session transition in the log.
func subscribeAudit(bus *events.EventBus, lg *slog.Logger) {
	audit := func(ctx context.Context, event events.Event) error {
		lg.InfoContext(ctx, "session event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	}
	bus.Subscribe(events.EventTypeSessionEstablished, audit)
	bus.Subscribe(events.EventTypeSessionEnded, audit)
}
