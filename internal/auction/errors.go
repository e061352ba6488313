package auction

import "errors"

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrInvalidAmount   = errors.New("bid amount must be a positive finite number")
	ErrInvalidProject  = errors.New("missing or invalid project fields")
	ErrAlreadyAccepted = errors.New("project already has an accepted bid")
	ErrDeadlinePassed  = errors.New("bidding closed (deadline passed)")
	ErrSelfBid         = errors.New("buyer cannot bid on own project")
	ErrBidNotLower     = errors.New("bid must be lower than current lowest")

	// ErrBidRejected is the fallback when the conditional write failed but the
	// diagnostic re-read no longer sees a failing condition. The re-read is
	// advisory: state may have changed again between write and read.
	ErrBidRejected = errors.New("unable to place bid")

	// ErrAcceptConflict covers every failed acceptance predicate. Acceptance
	// is low-frequency; the cause is not disambiguated and the request is
	// never retried.
	ErrAcceptConflict = errors.New("cannot accept this bid: check deadline, ownership and bid existence")
)
