package matchday

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/competition"
	"github.com/fantapay/fantapay/internal/platform/user"
)

// Repository defines the interface for matchday payment persistence.
// Implementations share the atomicity boundary of ledger.Store.WithTx:
// calls made inside a WithTx callback take part in the same unit.
type Repository interface {
	// CreateSchedule inserts the given pending records. Records whose
	// (user, competition, matchday) triple already exists are left
	// untouched, so re-materializing is harmless.
	CreateSchedule(ctx context.Context, payments []*Payment) error

	// ListByUserAndCompetition returns one user's records for a
	// competition, ordered by matchday.
	ListByUserAndCompetition(ctx context.Context, userID, competitionID uuid.UUID) ([]*Payment, error)

	// ListByCompetition returns every participant's records for a
	// competition, ordered by user then matchday.
	ListByCompetition(ctx context.Context, competitionID uuid.UUID) ([]*Payment, error)

	// MarkPaid flips the given pending matchdays to paid and returns how
	// many rows actually changed. Already-paid rows are not touched, so a
	// short count signals a lost race.
	MarkPaid(ctx context.Context, userID, competitionID uuid.UUID, matchdays []int, paidAt time.Time) (int, error)
}

// CompetitionGetter is the slice of the competition repository this
// service needs.
type CompetitionGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*competition.Competition, error)
}

// UserDirectory resolves display names for the admin table.
type UserDirectory interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error)
}
