package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/transport"
	"github.com/cmlre/marine-platform/pkg/logger"
)

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error)
	Logout(ctx context.Context) error
	Session() State
	Authorize(tokenString string) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	resp, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.Logger.WarnContext(r.Context(), "authentication failed", "email", dto.Email, "error", err)
		h.WriteErr(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// Logout handles POST /auth/logout. It does not require a valid token so that a
// stale client can always clear the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context()); err != nil {
		h.Logger.ErrorContext(r.Context(), "logout: failed to remove persisted record", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, NewSessionResponse(h.Service.Session()))
}

// Roles handles GET /admin/permissions
func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, NewRoleTableResponse())
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.NewUnauthorizedError("missing authorization token", internal.ErrCodeInvalidToken))
			return
		}

		u, err := h.Service.Authorize(token)
		if err != nil {
			h.Logger.WarnContext(r.Context(), "token rejected", "error", err)
			h.WriteErr(w, err)
			return
		}

		ctx := ContextWithUser(r.Context(), u)
		ctx = internal.ContextWithActor(ctx, u.Email)
		ctx = logger.With(ctx, "user_id", u.ID, "role", u.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
