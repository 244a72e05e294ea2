package rest

import (
	"log/slog"
	"net/http"

	"github.com/cmlre/marine-platform/internal/assistant"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/metrics"
	"github.com/cmlre/marine-platform/internal/navigation"
	"github.com/cmlre/marine-platform/internal/speech"
	"github.com/cmlre/marine-platform/internal/transport/middleware"
	"github.com/cmlre/marine-platform/internal/transport/swagger"
	"github.com/cmlre/marine-platform/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

const APIPrefix = "/api/v1"

// Handlers is everything RegisterAllRoutes mounts. Nil handlers leave their
// routes unregistered; Users is nil when accounts are not backed by a database.
type Handlers struct {
	Health     *HealthHandler
	Auth       *auth.Handler
	RBAC       *auth.RBACAuthorization
	Users      *user.Handler
	Navigation *navigation.Handler
	Assistant  *assistant.Handler
	Speech     *speech.Handler
}

type Options struct {
	AllowedOrigins string
	Metrics        *metrics.Metrics
	MetricsPath    string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router chi.Router, h Handlers, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.TraceID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger, opts.MetricsPath, APIPrefix+"/ping"))
	if opts.Metrics != nil {
		router.Use(middleware.Metrics(opts.Metrics))
	}

	if opts.Metrics != nil && opts.MetricsPath != "" {
		router.Method(http.MethodGet, opts.MetricsPath, opts.Metrics.Handler())
	}

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get(swagger.SpecPath, swagger.SpecHandler())
	router.Handle("/swagger/*", swagger.Handler())

	router.Route(APIPrefix, func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		if h.Auth == nil {
			return
		}

		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/session", h.Auth.Session)

		// Protected routes that require a token bound to the live session
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.Navigation != nil {
				pr.Get("/navigation", h.Navigation.GetNavigation)
				pr.Get("/surfaces/{surface}", h.Navigation.GetSurface)
			}

			if h.RBAC != nil {
				pr.With(h.RBAC.RequireManage(auth.CapabilitySystem)).Get("/admin/permissions", h.Auth.Roles)
			}

			if h.Users != nil {
				pr.Get("/users/me", h.Users.GetCurrentUser)
				if h.RBAC != nil {
					pr.With(h.RBAC.RequireManage(auth.CapabilityUsers)).Get("/users", h.Users.ListUsers)
				}
			}

			if h.Assistant != nil {
				pr.Group(func(ar chi.Router) {
					// the assistant panel lives on the dashboard
					if h.RBAC != nil {
						ar.Use(h.RBAC.RequireView(auth.SurfaceDashboard))
					}
					ar.Get("/assistant", h.Assistant.GetConversation)
					ar.Post("/assistant/messages", h.Assistant.SendMessage)
					ar.Put("/assistant/draft", h.Assistant.SetDraft)
					ar.Post("/assistant/cancel", h.Assistant.Cancel)
					ar.Delete("/assistant/transcript", h.Assistant.ClearTranscript)
				})
			}

			if h.Speech != nil {
				pr.Get("/speech", h.Speech.GetStatus)
				pr.Post("/speech/listen", h.Speech.Listen)
				pr.Post("/speech/stop", h.Speech.Stop)
				pr.Post("/speech/speak", h.Speech.Speak)
				pr.Post("/speech/cancel", h.Speech.Cancel)
			}
		})
	})
}
