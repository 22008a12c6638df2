// Package competition holds the competition entity: membership, financial
// configuration and the pooled wallet the ledger credits.
package competition

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/pkg/money"
)

// FinanceConfig is the financial configuration fixed at competition
// creation. DailyPaymentAmount is the per-matchday fee copied onto each
// MatchdayPayment record when a participant's schedule is materialized.
type FinanceConfig struct {
	TotalMatchdays           int          `json:"total_matchdays"`
	ParticipationCostPerTeam money.Amount `json:"participation_cost_per_team"`
	ExpectedTeams            int          `json:"expected_teams"`
	TotalPrizePool           money.Amount `json:"total_prize_pool"`
	DailyPaymentEnabled      bool         `json:"daily_payment_enabled"`
	DailyPaymentAmount       money.Amount `json:"daily_payment_amount"`
}

// Validate checks the configuration invariants.
func (f FinanceConfig) Validate() error {
	if f.TotalMatchdays <= 0 {
		return ErrInvalidMatchdayCount
	}
	if f.ParticipationCostPerTeam.IsNegative() || f.TotalPrizePool.IsNegative() {
		return ErrNegativeFinanceAmount
	}
	if f.ExpectedTeams <= 0 {
		return ErrInvalidExpectedTeams
	}
	if f.DailyPaymentEnabled && !f.DailyPaymentAmount.IsPositive() {
		return ErrMissingDailyAmount
	}
	if !f.DailyPaymentEnabled && f.DailyPaymentAmount != 0 {
		return ErrDailyAmountWithoutFlag
	}
	return nil
}

// StandingsKind tags the standings variant.
type StandingsKind string

const (
	// StandingsLegacy is a free-form mapping kept for imported data.
	StandingsLegacy StandingsKind = "legacy"
	// StandingsRanked is the structured per-participant table.
	StandingsRanked StandingsKind = "ranked"
)

// RankedRow is one participant's position in ranked standings.
type RankedRow struct {
	UserID   uuid.UUID `json:"user_id"`
	Position int       `json:"position"`
	Points   int       `json:"points"`
}

// Standings is a tagged variant: either a legacy free-form blob or a
// ranked table. The ledger core never inspects its content.
type Standings struct {
	Kind   StandingsKind  `json:"kind"`
	Legacy map[string]any `json:"legacy,omitempty"`
	Ranked []RankedRow    `json:"ranked,omitempty"`
}

// EmptyStandings is what a fresh competition starts with.
func EmptyStandings() Standings {
	return Standings{Kind: StandingsLegacy, Legacy: map[string]any{}}
}

// Validate checks the variant tag matches the populated payload.
func (s Standings) Validate() error {
	switch s.Kind {
	case StandingsLegacy:
		if s.Ranked != nil {
			return ErrStandingsVariantMismatch
		}
	case StandingsRanked:
		if s.Legacy != nil {
			return ErrStandingsVariantMismatch
		}
	default:
		return ErrStandingsVariantMismatch
	}
	return nil
}

// MarshalBinary implements encoding for storage as a JSON document.
func (s Standings) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalBinary implements decoding from the stored JSON document.
func (s *Standings) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, s)
}

// Competition is a season-long contest with a pooled wallet. WalletBalance
// only grows through ledger transfers; there is no direct admin mutation.
type Competition struct {
	ID              uuid.UUID
	Name            string
	AdminID         uuid.UUID
	InviteCode      string
	Participants    []uuid.UUID
	WalletBalance   money.Amount
	Finance         FinanceConfig
	Standings       Standings
	CurrentMatchday int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAdmin reports whether the given user administers this competition.
func (c *Competition) IsAdmin(userID uuid.UUID) bool {
	return c.AdminID == userID
}

// HasParticipant reports whether the given user currently participates.
// The admin is always a participant.
func (c *Competition) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// NewInviteCode generates the 8-character uppercase join code.
func NewInviteCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
