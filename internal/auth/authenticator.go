package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator turns credentials into a signed-in user.
type Authenticator interface {
	Authenticate(ctx context.Context, email, credential string) (*User, error)
}

// MockAuthenticator accepts any credential and derives the role from the email address.
// It stands in for a real identity provider in demos and tests.
type MockAuthenticator struct {
	// Delay simulates a round trip to an identity provider.
	Delay time.Duration
}

func NewMockAuthenticator() *MockAuthenticator {
	return &MockAuthenticator{}
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, email, credential string) (*User, error) {
	email = strings.TrimSpace(email)
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return nil, ErrInvalidCredentials
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &User{
		ID:                "1",
		Email:             email,
		Name:              local,
		Role:              RoleFromEmail(email),
		Organization:      DefaultOrganization,
		PreferredLanguage: DefaultLanguage,
	}, nil
}

// RoleFromEmail is the demo role rule: "admin" wins over "researcher", anything else is a user.
func RoleFromEmail(email string) Role {
	switch {
	case strings.Contains(email, "admin"):
		return RoleAdmin
	case strings.Contains(email, "researcher"):
		return RoleResearcher
	default:
		return RoleUser
	}
}

// Account is a registered identity with a password hash.
type Account struct {
	ID                string
	Email             string
	Name              string
	PasswordHash      string
	Role              Role
	Organization      string
	PreferredLanguage string
	IsActive          bool
}

type AccountFinder interface {
	FindAccount(ctx context.Context, email string) (*Account, error)
}

// AccountAuthenticator verifies bcrypt credentials against registered accounts.
type AccountAuthenticator struct {
	accounts AccountFinder
}

func NewAccountAuthenticator(accounts AccountFinder) *AccountAuthenticator {
	return &AccountAuthenticator{accounts: accounts}
}

func (a *AccountAuthenticator) Authenticate(ctx context.Context, email, credential string) (*User, error) {
	acc, err := a.accounts.FindAccount(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if acc == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !acc.IsActive {
		return nil, ErrUserInactive
	}

	lang := acc.PreferredLanguage
	if lang == "" {
		lang = DefaultLanguage
	}

	return &User{
		ID:                acc.ID,
		Email:             acc.Email,
		Name:              acc.Name,
		Role:              acc.Role,
		Organization:      acc.Organization,
		PreferredLanguage: lang,
	}, nil
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
