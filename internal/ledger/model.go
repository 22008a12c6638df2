// Package ledger holds the append-only transaction log and the storage
// port that every balance mutation goes through.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/pkg/money"
)

// TxType classifies a balance movement.
type TxType string

const (
	TxDeposit         TxType = "deposit"
	TxWithdraw        TxType = "withdraw"
	TxPayment         TxType = "payment"
	TxMatchdayPayment TxType = "matchday_payment"
	TxPrize           TxType = "prize"
	TxRefund          TxType = "refund"
)

// Valid reports whether t is a known transaction type.
func (t TxType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdraw, TxPayment, TxMatchdayPayment, TxPrize, TxRefund:
		return true
	}
	return false
}

// WalletRef names one side of a balance movement.
type WalletRef string

const (
	WalletPersonal    WalletRef = "personal"
	WalletCompetition WalletRef = "competition"
	WalletExternal    WalletRef = "external"
)

// Valid reports whether w is a known wallet reference.
func (w WalletRef) Valid() bool {
	switch w {
	case WalletPersonal, WalletCompetition, WalletExternal:
		return true
	}
	return false
}

// Transaction is an immutable audit record of a single balance movement.
// Records are only ever appended, never updated or deleted.
type Transaction struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CompetitionID *uuid.UUID
	Type          TxType
	Amount        money.Amount
	FromWallet    WalletRef
	ToWallet      WalletRef
	Description   string
	CreatedAt     time.Time
}

// Validate checks the record invariants before it is appended.
func (t *Transaction) Validate() error {
	if t.UserID == uuid.Nil {
		return ErrMissingUser
	}
	if !t.Type.Valid() {
		return ErrInvalidTxType
	}
	if !t.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !t.FromWallet.Valid() || !t.ToWallet.Valid() {
		return ErrInvalidWalletRef
	}
	if t.FromWallet == t.ToWallet {
		return ErrSameWallet
	}
	return nil
}
