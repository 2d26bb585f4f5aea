package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pf-nexus/papermark/internal/domain"
	"github.com/pf-nexus/papermark/internal/port"
)

const accountColumns = "id, user_id, type, provider, provider_account_id, created_at"

type accountRepo struct {
	db *sqlx.DB
}

// NewAccountRepo creates a new PostgreSQL-backed AccountRepository.
func NewAccountRepo(db *sqlx.DB) port.AccountRepository {
	return &accountRepo{db: db}
}

type upsertedAccount struct {
	domain.Account
	Inserted bool `db:"inserted"`
}

func (r *accountRepo) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider domain.AuthProvider) (*domain.Account, error) {
	var account domain.Account
	err := r.db.GetContext(ctx, &account,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = $1 AND provider = $2",
		userID, provider)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("accountRepo.GetByUserAndProvider: %w", err)
	}
	return &account, nil
}

func (r *accountRepo) CreateIfAbsent(ctx context.Context, account *domain.Account) (*domain.Account, bool, error) {
	id := account.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	query := `INSERT INTO accounts (id, user_id, type, provider, provider_account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, provider) DO UPDATE SET provider = accounts.provider
		RETURNING ` + accountColumns + `, (xmax = 0) AS inserted`

	var row upsertedAccount
	err := r.db.GetContext(ctx, &row, query,
		id, account.UserID, account.Type, account.Provider, account.ProviderAccountID, time.Now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return nil, false, fmt.Errorf("accountRepo.CreateIfAbsent: %w", domain.ErrNotFound)
		}
		return nil, false, fmt.Errorf("accountRepo.CreateIfAbsent: %w", err)
	}
	stored := row.Account
	return &stored, row.Inserted, nil
}
