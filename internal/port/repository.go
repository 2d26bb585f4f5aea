package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/pf-nexus/papermark/internal/domain"
)

// UserRepository defines the contract for local user persistence.
// Email is the join key with the upstream authority and is matched exactly.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// CreateIfAbsent inserts user unless a user with the same email exists, in
	// a single atomic statement. It returns the stored row and whether this
	// call created it.
	CreateIfAbsent(ctx context.Context, user *domain.User) (*domain.User, bool, error)
}

// AccountRepository defines the contract for provider account links.
// There is at most one link per (user, provider).
type AccountRepository interface {
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider domain.AuthProvider) (*domain.Account, error)
	// CreateIfAbsent inserts account unless a link for the same user and
	// provider exists. It returns the stored row and whether this call created it.
	CreateIfAbsent(ctx context.Context, account *domain.Account) (*domain.Account, bool, error)
}
