package services

import (
	"errors"
	"fmt"

	"github.com/samirnavas/who-gets-it/internal/models"
)

type RejectionKind string

const (
	// KindValidation is bad input shape or range, caught before any transaction opens.
	KindValidation RejectionKind = "validation"
	// KindPrecondition is a target in the wrong state or a rule the request breaks.
	KindPrecondition RejectionKind = "precondition"
	KindPermission   RejectionKind = "permission"
	KindNotFound     RejectionKind = "not_found"
	// KindConflict means a race was lost inside the transaction. Nothing was written.
	KindConflict RejectionKind = "conflict"
	// KindPersistence is a storage failure. The transaction was rolled back.
	KindPersistence RejectionKind = "persistence"
)

// Rejection is the error every service operation returns. Reason is safe to
// show to the caller; Err carries the underlying cause for logs.
type Rejection struct {
	Kind   RejectionKind
	Reason string
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return r.Reason + ": " + r.Err.Error()
	}
	return r.Reason
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

const (
	ReasonAdminRequired      = "Admin privileges required"
	ReasonAuthRequired       = "authentication required"
	ReasonAuctionNotFound    = "auction not found"
	ReasonAuctionNotActive   = "auction is not active"
	ReasonAuctionNoLonger    = "auction no longer active"
	ReasonAuctionHasEnded    = "auction has ended"
	ReasonAuctionNotExpired  = "auction has not reached its end time"
	ReasonOwnBid             = "you cannot bid on your own auction"
	ReasonBidderBarred       = "you are barred from bidding on this auction"
	ReasonBidNotFound        = "bid not found"
	ReasonBidAlreadyStopped  = "bid already stopped"
	ReasonReasonRequired     = "reason required"
	ReasonUserNotFound       = "user not found"
	ReasonAlreadyAdmin       = "user is already an admin"
	ReasonNotAdmin           = "user is not an admin"
	ReasonSelfDemote         = "you cannot remove your own admin role"
	ReasonUnknownAction      = "unknown action type"
	ReasonInternal           = "internal error"
	ReasonAmountNotPositive  = "bid amount must be positive"
	ReasonAmountTooLarge     = "amount exceeds $1000000000000.00"
	ReasonTitleRequired      = "title is required"
	ReasonStartingBidInvalid = "starting bid must be positive"
	ReasonEndTimeInPast      = "end time must be in the future"
)

func reject(kind RejectionKind, reason string) *Rejection {
	return &Rejection{Kind: kind, Reason: reason}
}

func persistenceFault(op string, err error) *Rejection {
	return &Rejection{Kind: KindPersistence, Reason: ReasonInternal, Err: fmt.Errorf("%s: %w", op, err)}
}

// txError passes rejections raised inside a transaction through unchanged
// and turns anything else into a persistence fault.
func txError(op string, err error) error {
	if err == nil {
		return nil
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej
	}
	return persistenceFault(op, err)
}

func minimumBidReason(minimum models.Money) string {
	return "bid must be at least " + minimum.Display()
}

func alreadyFinishedReason(status string) string {
	switch status {
	case models.AuctionStatusEnded:
		return "auction already ended"
	case models.AuctionStatusCancelled:
		return "auction already cancelled"
	}
	return ReasonAuctionNotActive
}

// KindOf reports the rejection kind of err. Errors that are not rejections
// count as persistence faults.
func KindOf(err error) RejectionKind {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Kind
	}
	return KindPersistence
}

// ReasonOf returns the caller-safe reason for err.
func ReasonOf(err error) string {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ReasonInternal
}
