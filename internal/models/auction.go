package models

import (
	"time"

	"github.com/google/uuid"
)

// Auction statuses
const (
	AuctionStatusActive    = "active"
	AuctionStatusEnded     = "ended"
	AuctionStatusCancelled = "cancelled"
)

// Valid state transitions: from -> []to
var ValidAuctionTransitions = map[string][]string{
	AuctionStatusActive:    {AuctionStatusEnded, AuctionStatusCancelled},
	AuctionStatusEnded:     {},
	AuctionStatusCancelled: {},
}

func IsValidAuctionStatus(status string) bool {
	_, ok := ValidAuctionTransitions[status]
	return ok
}

func IsValidAuctionTransition(from, to string) bool {
	allowed, ok := ValidAuctionTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Auction is a single listing. CurrentBid and HighestBidderID are a cached
// view of the highest active bid and are rewritten on every bid mutation.
type Auction struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	StartingBid     Money      `json:"starting_bid"`
	CurrentBid      Money      `json:"current_bid"`
	HighestBidderID *uuid.UUID `json:"highest_bidder_id,omitempty"`
	EndTime         time.Time  `json:"end_time"`
	Status          string     `json:"status"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	EndedBy         *uuid.UUID `json:"ended_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (a *Auction) IsActive() bool {
	return a.Status == AuctionStatusActive
}

// HasExpired reports whether the end time has been reached, regardless of status.
func (a *Auction) HasExpired(now time.Time) bool {
	return !a.EndTime.After(now)
}

func (a *Auction) IsOwnedBy(userID uuid.UUID) bool {
	return a.OwnerID == userID
}
