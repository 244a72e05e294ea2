package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/transport"
)

// PermissionAuthorizer answers access questions for the route guards.
type PermissionAuthorizer interface {
	CanViewCtx(ctx context.Context, role Role, surface Surface) (bool, error)
	CanManageCtx(ctx context.Context, role Role, capability Capability) (bool, error)
}

type RBACAuthorization struct {
	*transport.BaseHandler
	authorizer PermissionAuthorizer
}

func NewRBACAuthorization(authorizer PermissionAuthorizer, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		authorizer:  authorizer,
	}
}

type accessCheck func(ctx context.Context, role Role) (bool, error)

func (ra *RBACAuthorization) require(kind, target string, check accessCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				ra.Logger.WarnContext(r.Context(), "authorization check failed: user not found in context")
				ra.WriteAppError(w, internal.ErrNotSignedIn)
				return
			}

			allowed, err := check(r.Context(), user.Role)
			if err != nil {
				ra.Logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "user_id", user.ID, kind, target)
				ra.WriteError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if !allowed {
				ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"role", user.Role,
					kind, target)
				ra.WriteAppError(w, internal.ErrForbiddenSurface.WithDetails(map[string]string{kind: target}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireView(surface Surface) func(http.Handler) http.Handler {
	return ra.require("surface", string(surface), func(ctx context.Context, role Role) (bool, error) {
		return ra.authorizer.CanViewCtx(ctx, role, surface)
	})
}

func (ra *RBACAuthorization) RequireManage(capability Capability) func(http.Handler) http.Handler {
	return ra.require("manage", string(capability), func(ctx context.Context, role Role) (bool, error) {
		return ra.authorizer.CanManageCtx(ctx, role, capability)
	})
}
