// Package auth defines the authenticated Principal handed to the core by
// the transport layer, and the authorization guard evaluated before any
// ledger-touching operation.
package auth

import (
	"github.com/google/uuid"

	apperrors "github.com/fantapay/fantapay/internal/shared/errors"
)

// Principal is the authenticated identity making a request. It is built by
// the JWT middleware and trusted by the core.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// CompetitionACL is the slice of a competition the guard needs. The
// competition model satisfies it, so the guard stays decoupled from
// competition internals.
type CompetitionACL interface {
	IsAdmin(userID uuid.UUID) bool
	HasParticipant(userID uuid.UUID) bool
}

// RequireParticipant fails with Forbidden unless the principal currently
// participates in the competition.
func RequireParticipant(c CompetitionACL, p Principal) error {
	if !c.HasParticipant(p.UserID) {
		return apperrors.Forbidden("not a participant in this competition")
	}
	return nil
}

// RequireAdmin fails with Forbidden unless the principal is the
// competition's admin.
func RequireAdmin(c CompetitionACL, p Principal) error {
	if !c.IsAdmin(p.UserID) {
		return apperrors.Forbidden("only the competition admin may perform this operation")
	}
	return nil
}

// RequireSelf fails with Forbidden unless the principal is acting on their
// own records. Wallet operations have no target parameter and are always
// self-scoped; this guards the few reads that do take a user ID.
func RequireSelf(target uuid.UUID, p Principal) error {
	if target != p.UserID {
		return apperrors.Forbidden("operation is restricted to the requesting user")
	}
	return nil
}
