package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func ParsePGErrorCode(err error) string {
	if pgErr, ok := err.(*pgconn.PgError); ok {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input provided")
)

// Party lifecycle
var (
	ErrPartyNotFound     = errors.New("party not found")
	ErrPartyEnded        = errors.New("party already ended")
	ErrInvalidTransition = errors.New("invalid party status transition")
	ErrNotLeader         = errors.New("only the party leader may do this")
	ErrNotMember         = errors.New("user is not a member of this party")
	ErrAlreadyMember     = errors.New("user is already a member of this party")
	ErrLeaderCannotLeave = errors.New("leader cannot leave their own party")
	ErrSettlementMissing = errors.New("party has no settlement ledger")
	ErrSettlementFrozen  = errors.New("settlement ledger is frozen")
	ErrAlreadySettled    = errors.New("member already settled")
	ErrEmptySplit        = errors.New("settlement requires at least one member")
)

// Join requests
var (
	ErrRequestNotFound  = errors.New("join request not found")
	ErrRequestResolved  = errors.New("join request already resolved")
	ErrDuplicateRequest = errors.New("pending join request already exists")
)
