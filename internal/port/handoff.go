package port

import (
	"context"
	"time"
)

// HandoffStore records consumed handoff token ids so each token is redeemed
// at most once.
type HandoffStore interface {
	// Consume marks id as used for ttl. It returns false when id was already
	// consumed.
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
}
