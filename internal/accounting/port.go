package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/competition"
	"github.com/fantapay/fantapay/internal/platform/user"
)

// Cache is the summary cache port. A nil cache disables caching; a cache
// miss or a cache failure falls through to a fresh computation.
type Cache interface {
	GetSummary(ctx context.Context, competitionID uuid.UUID) (*Summary, error)
	SetSummary(ctx context.Context, summary *Summary, ttl time.Duration) error
}

// CompetitionGetter is the slice of the competition repository this
// service needs.
type CompetitionGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*competition.Competition, error)
}

// UserDirectory resolves display names for the transaction feed.
type UserDirectory interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error)
}
