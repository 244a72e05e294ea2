package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/core/common/validation"
	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, u *User) error
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger.With("component", "accounts"),
	}
}

// FindAccount satisfies auth.AccountFinder. An unknown email reads as bad credentials
// so the caller cannot probe which addresses are registered.
func (s *Service) FindAccount(ctx context.Context, email string) (*auth.Account, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return u.ToAccount(), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*UserResponse, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	resp := NewUserResponse(u)
	return &resp, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*UserResponse, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	resp := NewUserResponse(u)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) (*UsersResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := &UsersResponse{Users: make([]UserResponse, 0, len(users))}
	for _, u := range users {
		out.Users = append(out.Users, NewUserResponse(u))
	}
	out.Total = len(out.Users)
	return out, nil
}

// Register creates an active account with a bcrypt hashed password.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*User, error) {
	email := normalizeEmail(dto.Email)
	if appErr := validation.ValidateRegistration(email, dto.Name, dto.Password, string(dto.Role)); appErr != nil {
		return nil, appErr
	}

	_, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, internal.ErrEmailTaken.WithDetails(map[string]string{"email": email})
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	lang := dto.PreferredLanguage
	if lang == "" {
		lang = auth.DefaultLanguage
	}
	org := dto.Organization
	if org == "" {
		org = auth.DefaultOrganization
	}

	now := time.Now().UTC()
	u := &User{
		ID:                uuid.NewString(),
		Email:             email,
		Name:              strings.TrimSpace(dto.Name),
		PasswordHash:      hash,
		Role:              dto.Role,
		Organization:      org,
		PreferredLanguage: lang,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "account registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
