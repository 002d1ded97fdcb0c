package domain

import "errors"

// Failure taxonomy. Every mutating call either succeeds or returns one
// of these (possibly wrapped) with no state change.
var (
	// Authorization failures.
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAdminRequired = errors.New("admin role required")
	ErrTenantOnly    = errors.New("tenant role required")
	ErrNotMinter     = errors.New("caller is not the token minter")
	ErrNotOwner      = errors.New("caller is not the project owner")
	ErrNotApproved   = errors.New("caller is not the holder or an approved operator")

	// Invalid references.
	ErrProjectNotFound = errors.New("project does not exist")
	ErrTokenNotFound   = errors.New("token does not exist")
	ErrInvalidClass    = errors.New("unknown asset class")

	// Invariant violations.
	ErrTokenLocked         = errors.New("token already locked")
	ErrCeilingBelowSupply  = errors.New("ceiling below issued+burned")
	ErrCeilingExceeded     = errors.New("issuance would exceed ceiling")
	ErrBurnExceedsIssued   = errors.New("burn amount exceeds issued units")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLengthMismatch      = errors.New("parameter length mismatch")
	ErrEmptyBatch          = errors.New("batch must contain at least one token")
	ErrNonFungibleRemint   = errors.New("non-fungible token cannot be re-minted")
	ErrAmountOverflow      = errors.New("amount overflows supply counter")
	ErrZeroAddress         = errors.New("zero address not allowed")
	ErrReentrant           = errors.New("reentrant call")

	// System state.
	ErrPaused = errors.New("system paused")
)
