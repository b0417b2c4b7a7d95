package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BidStatusActive  = "active"
	BidStatusStopped = "stopped"
)

type Bid struct {
	ID        uuid.UUID  `json:"id"`
	AuctionID uuid.UUID  `json:"auction_id"`
	BidderID  uuid.UUID  `json:"bidder_id"`
	Amount    Money      `json:"amount"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	StoppedBy *uuid.UUID `json:"stopped_by,omitempty"`
}

func (b *Bid) IsActive() bool {
	return b.Status == BidStatusActive
}

// Outranks reports whether b beats other for the lead: higher amount wins,
// an equal amount placed earlier wins, and the id breaks exact ties.
func (b *Bid) Outranks(other *Bid) bool {
	if other == nil {
		return true
	}
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	if !b.CreatedAt.Equal(other.CreatedAt) {
		return b.CreatedAt.Before(other.CreatedAt)
	}
	return b.ID.String() < other.ID.String()
}

// HighestActive returns the leading active bid, or nil if there is none.
func HighestActive(bids []Bid) *Bid {
	var best *Bid
	for i := range bids {
		b := &bids[i]
		if !b.IsActive() {
			continue
		}
		if b.Outranks(best) {
			best = b
		}
	}
	return best
}
