package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pf-nexus/papermark/internal/domain"
	"github.com/pf-nexus/papermark/internal/port"
)

const userColumns = "id, email, name, email_verified_at, created_at, updated_at"

type userRepo struct {
	db *sqlx.DB
}

// NewUserRepo creates a new PostgreSQL-backed UserRepository.
func NewUserRepo(db *sqlx.DB) port.UserRepository {
	return &userRepo{db: db}
}

// upsertedUser is a users row plus whether the statement inserted it.
type upsertedUser struct {
	domain.User
	Inserted bool `db:"inserted"`
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByEmail: %w", err)
	}
	return &user, nil
}

// CreateIfAbsent relies on the unique index on users(email). The no-op update
// on conflict makes RETURNING yield the existing row; xmax is 0 only for a
// freshly inserted tuple.
func (r *userRepo) CreateIfAbsent(ctx context.Context, user *domain.User) (*domain.User, bool, error) {
	id := user.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()

	query := `INSERT INTO users (id, email, name, email_verified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET email = users.email
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted`

	var row upsertedUser
	err := r.db.GetContext(ctx, &row, query,
		id, user.Email, user.Name, user.EmailVerifiedAt, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("userRepo.CreateIfAbsent: %w", err)
	}
	stored := row.User
	return &stored, row.Inserted, nil
}
