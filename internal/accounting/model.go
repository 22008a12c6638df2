// Package accounting provides the competition-scoped read side of the
// ledger: annotated transaction feeds, a cached financial summary, and a
// reconciliation check against the transaction log.
package accounting

import (
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/ledger"
	"github.com/fantapay/fantapay/pkg/money"
)

// AnnotatedTransaction is a ledger record enriched with the payer's
// display name for the competition feed.
type AnnotatedTransaction struct {
	*ledger.Transaction
	UserName string `json:"user_name"`
}

// Summary is the financial overview of one competition. TotalsByType
// sums inflow amounts per transaction type.
type Summary struct {
	CompetitionID    uuid.UUID                      `json:"competition_id"`
	WalletBalance    money.Amount                   `json:"wallet_balance"`
	TotalPrizePool   money.Amount                   `json:"total_prize_pool"`
	ExpectedTotal    money.Amount                   `json:"expected_total"`
	CollectionRate   float64                        `json:"collection_rate"`
	ParticipantCount int                            `json:"participant_count"`
	TransactionCount int                            `json:"transaction_count"`
	TotalsByType     map[ledger.TxType]money.Amount `json:"totals_by_type"`
	GeneratedAt      time.Time                      `json:"generated_at"`
}

// ReconcileReport compares the stored pooled balance with the net sum of
// the transaction log. The two must agree; any drift is an integrity bug.
type ReconcileReport struct {
	CompetitionID uuid.UUID    `json:"competition_id"`
	WalletBalance money.Amount `json:"wallet_balance"`
	LedgerNet     money.Amount `json:"ledger_net"`
	Drift         money.Amount `json:"drift"`
	Consistent    bool         `json:"consistent"`
	CheckedAt     time.Time    `json:"checked_at"`
}
