package port

import (
	"context"

	"github.com/pf-nexus/papermark/internal/domain"
)

// UpstreamValidator exchanges an upstream session token for the user profile
// it belongs to. Implementations make a single attempt and never retry.
type UpstreamValidator interface {
	Validate(ctx context.Context, sessionToken string) (*domain.UpstreamProfile, error)
}
