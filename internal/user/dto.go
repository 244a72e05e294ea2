package user

import (
	"time"

	"github.com/cmlre/marine-platform/internal/auth"
)

// UserResponse is the public view of an account. The password hash never leaves the service.
type UserResponse struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Role              auth.Role `json:"role"`
	Organization      string    `json:"organization,omitempty"`
	PreferredLanguage string    `json:"preferredLanguage"`
	IsActive          bool      `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
}

type UsersResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
}

// RegisterDTO carries a new account. The password arrives in clear text and is hashed by the service.
type RegisterDTO struct {
	Email             string
	Name              string
	Password          string
	Role              auth.Role
	Organization      string
	PreferredLanguage string
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		Role:              u.Role,
		Organization:      u.Organization,
		PreferredLanguage: u.PreferredLanguage,
		IsActive:          u.IsActive,
		CreatedAt:         u.CreatedAt,
	}
}
