package competition

import "errors"

var (
	ErrNotFound                 = errors.New("competition not found")
	ErrInvalidName              = errors.New("competition name is required")
	ErrInvalidMatchdayCount     = errors.New("total matchdays must be positive")
	ErrInvalidExpectedTeams     = errors.New("expected teams must be positive")
	ErrNegativeFinanceAmount    = errors.New("financial amounts cannot be negative")
	ErrMissingDailyAmount       = errors.New("daily payment amount is required when daily payments are enabled")
	ErrDailyAmountWithoutFlag   = errors.New("daily payment amount set but daily payments are disabled")
	ErrStandingsVariantMismatch = errors.New("standings payload does not match its kind")
	ErrAlreadyParticipant       = errors.New("already joined this competition")
	ErrCannotRemoveAdmin        = errors.New("the admin cannot be removed from their competition")
	ErrParticipantNotFound      = errors.New("participant not found in this competition")
)
