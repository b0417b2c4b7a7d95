package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/models"
)

// RegisterRequest carries a signed identity assertion from the
// authentication service; the username is taken from it.
type RegisterRequest struct {
	Assertion string  `json:"assertion"`
	Email     *string `json:"email,omitempty"`
}

type TokenRequest struct {
	Assertion string `json:"assertion"`
}

type CreateAuctionRequest struct {
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	StartingBid models.Money `json:"starting_bid"`
	EndTime     time.Time    `json:"end_time"`
}

// PlaceBidRequest accepts the amount as "10.01" or 10.01.
type PlaceBidRequest struct {
	Amount models.Money `json:"amount"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type BulkStopRequest struct {
	BidIDs []uuid.UUID `json:"bid_ids"`
	Reason string      `json:"reason"`
}
