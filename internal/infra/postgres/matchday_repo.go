package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/matchday"
	"github.com/fantapay/fantapay/pkg/money"
)

// MatchdayRepo implements matchday.Repository using PostgreSQL. The
// (user_id, competition_id, matchday) primary key enforces schedule
// uniqueness; MarkPaid only touches pending rows so its row count exposes
// lost races to the caller.
type MatchdayRepo struct {
	db *DB
}

// NewMatchdayRepo creates a new PostgreSQL matchday repository
func NewMatchdayRepo(db *DB) *MatchdayRepo {
	return &MatchdayRepo{db: db}
}

func (r *MatchdayRepo) CreateSchedule(ctx context.Context, payments []*matchday.Payment) error {
	query := `
		INSERT INTO matchday_payments (user_id, competition_id, matchday, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, competition_id, matchday) DO NOTHING
	`

	q := queryerFromContext(ctx, r.db)
	for _, p := range payments {
		_, err := q.Exec(ctx, query,
			p.UserID,
			p.CompetitionID,
			p.Matchday,
			p.Amount.Cents(),
			string(p.Status),
			p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert matchday payment: %w", err)
		}
	}
	return nil
}

func (r *MatchdayRepo) ListByUserAndCompetition(ctx context.Context, userID, competitionID uuid.UUID) ([]*matchday.Payment, error) {
	query := `
		SELECT user_id, competition_id, matchday, amount, status, paid_at, created_at
		FROM matchday_payments
		WHERE user_id = $1 AND competition_id = $2
		ORDER BY matchday ASC
	`
	return r.list(ctx, query, userID, competitionID)
}

func (r *MatchdayRepo) ListByCompetition(ctx context.Context, competitionID uuid.UUID) ([]*matchday.Payment, error) {
	query := `
		SELECT user_id, competition_id, matchday, amount, status, paid_at, created_at
		FROM matchday_payments
		WHERE competition_id = $1
		ORDER BY user_id ASC, matchday ASC
	`
	return r.list(ctx, query, competitionID)
}

func (r *MatchdayRepo) MarkPaid(ctx context.Context, userID, competitionID uuid.UUID, matchdays []int, paidAt time.Time) (int, error) {
	query := `
		UPDATE matchday_payments
		SET status = 'paid', paid_at = $4
		WHERE user_id = $1 AND competition_id = $2 AND matchday = ANY($3) AND status = 'pending'
	`

	q := queryerFromContext(ctx, r.db)
	tag, err := q.Exec(ctx, query, userID, competitionID, matchdays, paidAt)
	if err != nil {
		return 0, fmt.Errorf("failed to mark matchdays paid: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *MatchdayRepo) list(ctx context.Context, query string, args ...any) ([]*matchday.Payment, error) {
	q := queryerFromContext(ctx, r.db)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matchday payments: %w", err)
	}
	defer rows.Close()

	var payments []*matchday.Payment
	for rows.Next() {
		var p matchday.Payment
		var cents int64
		var status string

		err := rows.Scan(
			&p.UserID,
			&p.CompetitionID,
			&p.Matchday,
			&cents,
			&status,
			&p.PaidAt,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan matchday payment: %w", err)
		}

		p.Amount = money.FromCents(cents)
		p.Status = matchday.Status(status)
		payments = append(payments, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matchday payments: %w", err)
	}
	return payments, nil
}
