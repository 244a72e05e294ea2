package navigation

import "github.com/cmlre/marine-platform/internal/auth"

type NavigationResponse struct {
	Role        auth.Role        `json:"role"`
	Items       []Item           `json:"items"`
	Permissions auth.Permissions `json:"permissions"`
}

type SurfaceResponse struct {
	Item    Item `json:"item"`
	CanEdit bool `json:"canEdit"`
}
