package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fantapay/fantapay/internal/competition"
	"github.com/fantapay/fantapay/pkg/money"
)

// CompetitionRepo implements competition.Repository using PostgreSQL.
// Participants live in a join table; the loaded Participants slice is
// ordered by join time so the admin always comes first.
type CompetitionRepo struct {
	db *DB
}

// NewCompetitionRepo creates a new PostgreSQL competition repository
func NewCompetitionRepo(db *DB) *CompetitionRepo {
	return &CompetitionRepo{db: db}
}

func (r *CompetitionRepo) Create(ctx context.Context, c *competition.Competition) error {
	standingsJSON, err := c.Standings.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w", err)
	}

	query := `
		INSERT INTO competitions (
			id, name, admin_id, invite_code, wallet_balance,
			total_matchdays, participation_cost_per_team, expected_teams, total_prize_pool,
			daily_payment_enabled, daily_payment_amount,
			standings, current_matchday, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	q := queryerFromContext(ctx, r.db)
	_, err = q.Exec(ctx, query,
		c.ID,
		c.Name,
		c.AdminID,
		c.InviteCode,
		c.WalletBalance.Cents(),
		c.Finance.TotalMatchdays,
		c.Finance.ParticipationCostPerTeam.Cents(),
		c.Finance.ExpectedTeams,
		c.Finance.TotalPrizePool.Cents(),
		c.Finance.DailyPaymentEnabled,
		c.Finance.DailyPaymentAmount.Cents(),
		standingsJSON,
		c.CurrentMatchday,
		c.IsActive,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create competition: %w", err)
	}

	for _, userID := range c.Participants {
		if err := r.insertParticipant(ctx, c.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *CompetitionRepo) GetByID(ctx context.Context, id uuid.UUID) (*competition.Competition, error) {
	query := competitionSelect + ` WHERE c.id = $1 GROUP BY c.id`
	return r.scanOne(ctx, query, id)
}

func (r *CompetitionRepo) GetByInviteCode(ctx context.Context, code string) (*competition.Competition, error) {
	query := competitionSelect + ` WHERE c.invite_code = UPPER($1) GROUP BY c.id`
	return r.scanOne(ctx, query, code)
}

func (r *CompetitionRepo) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*competition.Competition, error) {
	query := competitionSelect + `
		WHERE c.id IN (SELECT competition_id FROM competition_participants WHERE user_id = $1)
		GROUP BY c.id
		ORDER BY c.created_at ASC
	`

	q := queryerFromContext(ctx, r.db)
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query competitions: %w", err)
	}
	defer rows.Close()

	var competitions []*competition.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		competitions = append(competitions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competitions: %w", err)
	}
	return competitions, nil
}

func (r *CompetitionRepo) AddParticipant(ctx context.Context, competitionID, userID uuid.UUID) error {
	return r.insertParticipant(ctx, competitionID, userID)
}

func (r *CompetitionRepo) RemoveParticipant(ctx context.Context, competitionID, userID uuid.UUID) error {
	query := `DELETE FROM competition_participants WHERE competition_id = $1 AND user_id = $2`

	q := queryerFromContext(ctx, r.db)
	tag, err := q.Exec(ctx, query, competitionID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return competition.ErrParticipantNotFound
	}
	return nil
}

func (r *CompetitionRepo) UpdateStandings(ctx context.Context, competitionID uuid.UUID, s competition.Standings, matchday *int) error {
	standingsJSON, err := s.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w", err)
	}

	query := `
		UPDATE competitions
		SET standings = $2,
		    current_matchday = COALESCE($3, current_matchday),
		    updated_at = NOW()
		WHERE id = $1
	`

	q := queryerFromContext(ctx, r.db)
	tag, err := q.Exec(ctx, query, competitionID, standingsJSON, matchday)
	if err != nil {
		return fmt.Errorf("failed to update standings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return competition.ErrNotFound
	}
	return nil
}

func (r *CompetitionRepo) insertParticipant(ctx context.Context, competitionID, userID uuid.UUID) error {
	query := `
		INSERT INTO competition_participants (competition_id, user_id, joined_at)
		VALUES ($1, $2, NOW())
	`

	q := queryerFromContext(ctx, r.db)
	if _, err := q.Exec(ctx, query, competitionID, userID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return competition.ErrAlreadyParticipant
		}
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

const competitionSelect = `
	SELECT c.id, c.name, c.admin_id, c.invite_code, c.wallet_balance,
	       c.total_matchdays, c.participation_cost_per_team, c.expected_teams, c.total_prize_pool,
	       c.daily_payment_enabled, c.daily_payment_amount,
	       c.standings, c.current_matchday, c.is_active, c.created_at, c.updated_at,
	       COALESCE(array_agg(p.user_id ORDER BY p.joined_at) FILTER (WHERE p.user_id IS NOT NULL), '{}') AS participants
	FROM competitions c
	LEFT JOIN competition_participants p ON p.competition_id = c.id
`

func (r *CompetitionRepo) scanOne(ctx context.Context, query string, arg any) (*competition.Competition, error) {
	q := queryerFromContext(ctx, r.db)
	c, err := scanCompetition(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, competition.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func scanCompetition(row pgx.Row) (*competition.Competition, error) {
	var c competition.Competition
	var walletCents, costCents, prizeCents, dailyCents int64
	var standingsJSON []byte

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.AdminID,
		&c.InviteCode,
		&walletCents,
		&c.Finance.TotalMatchdays,
		&costCents,
		&c.Finance.ExpectedTeams,
		&prizeCents,
		&c.Finance.DailyPaymentEnabled,
		&dailyCents,
		&standingsJSON,
		&c.CurrentMatchday,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Participants,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan competition: %w", err)
	}

	c.WalletBalance = money.FromCents(walletCents)
	c.Finance.ParticipationCostPerTeam = money.FromCents(costCents)
	c.Finance.TotalPrizePool = money.FromCents(prizeCents)
	c.Finance.DailyPaymentAmount = money.FromCents(dailyCents)

	if len(standingsJSON) > 0 {
		if err := c.Standings.UnmarshalBinary(standingsJSON); err != nil {
			return nil, fmt.Errorf("failed to unmarshal standings: %w", err)
		}
	}
	return &c, nil
}
