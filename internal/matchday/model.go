// Package matchday schedules and settles the per-matchday recurring fees
// of daily-payment competitions.
package matchday

import (
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/pkg/money"
)

// Status is the lifecycle state of one payment obligation.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Payment is one participant's obligation for one matchday. The triple
// (UserID, CompetitionID, Matchday) is unique, and status moves
// pending→paid exactly once — never back.
type Payment struct {
	UserID        uuid.UUID    `json:"user_id"`
	CompetitionID uuid.UUID    `json:"competition_id"`
	Matchday      int          `json:"matchday"`
	Amount        money.Amount `json:"amount"`
	Status        Status       `json:"status"`
	PaidAt        *time.Time   `json:"paid_at,omitempty"`
	CreatedAt     time.Time    `json:"-"`
}

// StatusView is a participant's own schedule for one competition.
type StatusView struct {
	CompetitionID  uuid.UUID  `json:"competition_id"`
	TotalMatchdays int        `json:"total_matchdays"`
	Payments       []*Payment `json:"payments"`
}

// BatchResult reports a completed batch payment.
type BatchResult struct {
	PaidMatchdays  []int        `json:"paid_matchdays"`
	TotalCost      money.Amount `json:"total_cost"`
	NewUserBalance money.Amount `json:"new_user_balance"`
}

// TableRow is one participant's line in the admin payment table.
// AmountPaid and AmountDue are derived for display, never persisted.
type TableRow struct {
	UserID     uuid.UUID    `json:"user_id"`
	Name       string       `json:"name"`
	Payments   []*Payment   `json:"matchday_payments"`
	AmountPaid money.Amount `json:"amount_paid"`
	AmountDue  money.Amount `json:"amount_due"`
}

// AdminTable is the admin-only per-participant payment overview.
// ResidualFee is the slice of the per-team participation cost not covered
// by matchday fees (preseason or playoff components); derived on read.
type AdminTable struct {
	CompetitionID      uuid.UUID    `json:"competition_id"`
	DailyPaymentAmount money.Amount `json:"daily_payment_amount"`
	TotalMatchdays     int          `json:"total_matchdays"`
	ResidualFee        money.Amount `json:"residual_fee"`
	Participants       []*TableRow  `json:"participants"`
}
