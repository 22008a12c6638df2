package ledger

import "errors"

// Transaction record errors
var (
	ErrMissingUser       = errors.New("transaction requires a user")
	ErrInvalidTxType     = errors.New("invalid transaction type")
	ErrNonPositiveAmount = errors.New("transaction amount must be positive")
	ErrInvalidWalletRef  = errors.New("invalid wallet reference")
	ErrSameWallet        = errors.New("transaction cannot move funds within one wallet")
)

// Store errors
var (
	ErrUserWalletNotFound        = errors.New("user wallet not found")
	ErrCompetitionWalletNotFound = errors.New("competition wallet not found")
)
