package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the local identity a bridged upstream user resolves to.
// Email is unique and compared exactly as the upstream authority returns it.
type User struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	Name            string     `db:"name" json:"name"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"email_verified_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Account links a local user to an external provider identity.
// There is at most one account per (UserID, Provider).
type Account struct {
	ID                uuid.UUID    `db:"id" json:"id"`
	UserID            uuid.UUID    `db:"user_id" json:"user_id"`
	Type              AccountType  `db:"type" json:"type"`
	Provider          AuthProvider `db:"provider" json:"provider"`
	ProviderAccountID string       `db:"provider_account_id" json:"provider_account_id"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
}

// UpstreamProfile is the authenticated user as reported by the upstream authority.
// It is transient and never persisted as-is.
type UpstreamProfile struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	EmailVerified string
}

// FullName joins first and last name the way local users are named on creation.
func (p *UpstreamProfile) FullName() string {
	return p.FirstName + " " + p.LastName
}

// IsEmailVerified reports whether the upstream authority vouches for the email.
func (p *UpstreamProfile) IsEmailVerified() bool {
	return p.EmailVerified == UpstreamEmailVerifiedYes
}
