package navigation

import (
	"net/http"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/transport"
	"github.com/go-chi/chi"
)

type GateAPI interface {
	Items(role auth.Role) []Item
	Item(role auth.Role, surface auth.Surface) (*Item, error)
}

type Handler struct {
	*transport.BaseHandler
	Gate GateAPI
}

func NewHandler(baseHandler *transport.BaseHandler, gate GateAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Gate:        gate,
	}
}

// GetNavigation handles GET /navigation
func (h *Handler) GetNavigation(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrNotSignedIn)
		return
	}

	h.WriteJSON(w, http.StatusOK, NavigationResponse{
		Role:        u.Role,
		Items:       h.Gate.Items(u.Role),
		Permissions: u.Permissions(),
	})
}

// GetSurface handles GET /surfaces/{surface}
func (h *Handler) GetSurface(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrNotSignedIn)
		return
	}

	surface := auth.Surface(chi.URLParam(r, "surface"))
	item, err := h.Gate.Item(u.Role, surface)
	if err != nil {
		h.WriteErr(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, SurfaceResponse{
		Item:    *item,
		CanEdit: auth.CanEdit(u.Role, auth.Capability(surface)),
	})
}
