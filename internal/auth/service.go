package auth

import (
	"context"
	"errors"

	"github.com/cmlre/marine-platform/internal"
)

// SessionStore is the part of *Store the HTTP service needs.
type SessionStore interface {
	Login(ctx context.Context, email, credential string) (*User, error)
	Logout(ctx context.Context) error
	State() State
	User() *User
	SessionID() string
}

// Service binds the process session to bearer tokens for HTTP clients.
type Service struct {
	store          SessionStore
	tokenGenerator TokenGenerator
}

func NewService(store SessionStore, tokenGen TokenGenerator) *Service {
	return &Service{
		store:          store,
		tokenGenerator: tokenGen,
	}
}

func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.store.Login(ctx, dto.Email, dto.Password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokenGenerator.GenerateAccessToken(u, s.store.SessionID())
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	return &LoginResponse{
		User:        u,
		Token:       token,
		Permissions: u.Permissions(),
	}, nil
}

func (s *Service) Logout(ctx context.Context) error {
	return s.store.Logout(ctx)
}

func (s *Service) Session() State {
	return s.store.State()
}

// Authorize validates a bearer token and checks it belongs to the live session.
func (s *Service) Authorize(tokenString string) (*User, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	u := s.store.User()
	if u == nil {
		return nil, internal.ErrNotSignedIn
	}
	if claims.SessionID == "" || claims.SessionID != s.store.SessionID() || claims.UserID != u.ID {
		return nil, internal.ErrInvalidToken
	}
	return u, nil
}
