package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	userDatamodel "github.com/cmlre/marine-platform/internal/core/datamodel/user"
	"github.com/cmlre/marine-platform/internal/user"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, name, password_hash, role, organization, preferred_language, is_active, created_at, updated_at`

// UserRepository reads and writes accounts with sqlx. Queries are written with
// '?' placeholders and rebound for the connected driver, so the same code runs
// against postgres and sqlite.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, "email", email)
}

func (r *UserRepository) getOne(ctx context.Context, column, value string) (*user.User, error) {
	var row userDatamodel.User
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM users WHERE %s = ?", userColumns, column))
	if err := r.db.GetContext(ctx, &row, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	var rows []userDatamodel.User
	query := fmt.Sprintf("SELECT %s FROM users ORDER BY email ASC", userColumns)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]*user.User, 0, len(rows))
	for i := range rows {
		users = append(users, user.FromDataModel(&rows[i]))
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (` + userColumns + `)
VALUES (:id, :email, :name, :password_hash, :role, :organization, :preferred_language, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user.ToDataModel(u)); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}
