package navigation

import (
	"log/slog"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
)

// Gate filters the navigation catalogue against the access control table.
type Gate struct {
	checker auth.PermissionChecker
	logger  *slog.Logger
}

func NewGate(checker auth.PermissionChecker, logger *slog.Logger) *Gate {
	if checker == nil {
		checker = auth.NewPermissionChecker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{checker: checker, logger: logger}
}

// Items returns the entries role may open, in sidebar order.
func (g *Gate) Items(role auth.Role) []Item {
	surfaces := g.checker.VisibleSurfaces(role)
	items := make([]Item, 0, len(surfaces))
	for _, s := range surfaces {
		it, ok := lookup(s)
		if !ok {
			g.logger.Warn("surface without navigation entry", "surface", s)
			continue
		}
		items = append(items, it)
	}
	return items
}

// Item resolves a single surface for role. Unknown surfaces are NOT_FOUND and
// hidden ones FORBIDDEN_SURFACE.
func (g *Gate) Item(role auth.Role, surface auth.Surface) (*Item, error) {
	it, ok := lookup(surface)
	if !ok {
		return nil, internal.ErrSurfaceNotFound
	}
	if !g.checker.CanView(role, surface) {
		return nil, internal.ErrForbiddenSurface.WithDetails(map[string]string{"surface": string(surface)})
	}
	return &it, nil
}
