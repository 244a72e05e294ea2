package auth

import (
	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() *internal.AppError {
	return validation.ValidateLogin(d.Email, d.Password)
}

type LoginResponse struct {
	User        *User       `json:"user"`
	Token       string      `json:"token"`
	Permissions Permissions `json:"permissions"`
}

type SessionResponse struct {
	User        *User        `json:"user"`
	IsLoading   bool         `json:"isLoading"`
	Permissions *Permissions `json:"permissions,omitempty"`
}

type RoleTableResponse struct {
	Roles map[Role]Permissions `json:"roles"`
}

func NewSessionResponse(st State) SessionResponse {
	resp := SessionResponse{User: st.User, IsLoading: st.IsLoading}
	if st.User != nil {
		p := st.User.Permissions()
		resp.Permissions = &p
	}
	return resp
}

func NewRoleTableResponse() RoleTableResponse {
	out := RoleTableResponse{Roles: make(map[Role]Permissions, len(Roles()))}
	for _, r := range Roles() {
		out.Roles[r] = PermissionsFor(r)
	}
	return out
}
