package competition

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for competition persistence operations
type Repository interface {
	// Create creates a new competition with its admin as sole participant.
	Create(ctx context.Context, c *Competition) error

	// GetByID retrieves a competition by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Competition, error)

	// GetByInviteCode retrieves a competition by its join code
	GetByInviteCode(ctx context.Context, code string) (*Competition, error)

	// ListByParticipant retrieves all competitions a user takes part in
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*Competition, error)

	// AddParticipant records a new participant
	AddParticipant(ctx context.Context, competitionID, userID uuid.UUID) error

	// RemoveParticipant removes a participant
	RemoveParticipant(ctx context.Context, competitionID, userID uuid.UUID) error

	// UpdateStandings replaces the standings blob and, when matchday is
	// non-nil, advances the current matchday.
	UpdateStandings(ctx context.Context, competitionID uuid.UUID, s Standings, matchday *int) error
}

// Scheduler materializes matchday payment schedules. Implemented by the
// matchday service; invoked when a participant enters a daily-payment
// competition.
type Scheduler interface {
	MaterializeSchedule(ctx context.Context, userID uuid.UUID, c *Competition) error
}

// TxRunner runs a function as one atomic storage unit. Membership writes
// and schedule materialization must commit together: a participant row
// without its pending schedule cannot be repaired by retrying the join.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
