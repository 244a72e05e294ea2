package user

import (
	"errors"
	"time"

	"github.com/cmlre/marine-platform/internal/auth"
	userDatamodel "github.com/cmlre/marine-platform/internal/core/datamodel/user"
)

// User is a registered CMLRE account.
type User struct {
	ID                string
	Email             string
	Name              string
	PasswordHash      string
	Role              auth.Role
	Organization      string
	PreferredLanguage string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (u *User) IsActiveUser() bool {
	return u.IsActive
}

func (u *User) IsAdmin() bool {
	return u.Role == auth.RoleAdmin
}

// ToAccount exposes the credential view the authenticator checks.
func (u *User) ToAccount() *auth.Account {
	return &auth.Account{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		PasswordHash:      u.PasswordHash,
		Role:              u.Role,
		Organization:      u.Organization,
		PreferredLanguage: u.PreferredLanguage,
		IsActive:          u.IsActive,
	}
}

var ErrNotFound = errors.New("user not found")

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		PasswordHash:      u.PasswordHash,
		Role:              string(u.Role),
		Organization:      u.Organization,
		PreferredLanguage: u.PreferredLanguage,
		IsActive:          u.IsActive,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// FromDataModel converts a row. Rows with a role outside the table fall back to
// the least privileged role.
func FromDataModel(u *userDatamodel.User) *User {
	role, err := auth.ParseRole(u.Role)
	if err != nil {
		role = auth.RoleUser
	}
	return &User{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		PasswordHash:      u.PasswordHash,
		Role:              role,
		Organization:      u.Organization,
		PreferredLanguage: u.PreferredLanguage,
		IsActive:          u.IsActive,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}
