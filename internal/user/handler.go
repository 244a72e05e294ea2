package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/transport"
)

type ServiceAPI interface {
	GetByEmail(ctx context.Context, email string) (*UserResponse, error)
	List(ctx context.Context) (*UsersResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me. Sessions signed in through the mock
// authenticator have no registered account, so the session profile is returned
// as is in that case.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.WriteAppError(w, internal.ErrNotSignedIn)
		return
	}

	account, err := h.Service.GetByEmail(r.Context(), u.Email)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			h.WriteJSON(w, http.StatusOK, UserResponse{
				ID:                u.ID,
				Email:             u.Email,
				Name:              u.Name,
				Role:              u.Role,
				Organization:      u.Organization,
				PreferredLanguage: u.PreferredLanguage,
				IsActive:          true,
			})
			return
		}
		h.Logger.ErrorContext(r.Context(), "GetCurrentUser: lookup failed", "email", u.Email, "error", err)
		h.WriteErr(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, account)
}

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.List(r.Context())
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "ListUsers: failed to list users", "error", err)
		h.WriteErr(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, users)
}
