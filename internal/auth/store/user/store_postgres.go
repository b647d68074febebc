package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"teamdns/internal/auth/models"
	"teamdns/internal/platform/postgres"
	id "teamdns/pkg/domain"
	"teamdns/pkg/platform/sentinel"
	"teamdns/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresUserStore relies on the lower(username) and lower(email) unique
// indexes for race-free registration.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = `id, username, email, password_hash, COALESCE(full_name, ''), is_active, created_at, updated_at`

func (s *PostgresUserStore) CreateIfAvailable(ctx context.Context, user *models.User) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, full_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
	`, uuid.UUID(user.ID), user.Username, user.Email, user.PasswordHash, user.FullName,
		user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err == nil {
		return nil
	}
	if _, ok := postgres.UniqueViolation(err); !ok {
		return fmt.Errorf("insert user: %w", err)
	}
	// Report username before email, whichever index fired first.
	if _, lookupErr := s.FindByUsername(ctx, user.Username); lookupErr == nil {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
}

func (s *PostgresUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// Execute locks the row, applies mutate and writes back mutable columns.
func (s *PostgresUserStore) Execute(ctx context.Context, userID id.UserID, mutate func(*models.User) error) (*models.User, error) {
	var out *models.User
	err := tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		u, err := s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, uuid.UUID(userID))
		if err != nil {
			return err
		}
		if err := mutate(u); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, s.db).ExecContext(ctx, `
			UPDATE users SET password_hash = $2, full_name = NULLIF($3, ''), is_active = $4, updated_at = $5
			WHERE id = $1
		`, uuid.UUID(userID), u.PasswordHash, u.FullName, u.IsActive, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresUserStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		u   models.User
		uid uuid.UUID
	)
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(
		&uid, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(uid)
	return &u, nil
}
