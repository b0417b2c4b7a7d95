package dto

import (
	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/models"
)

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type HighestBidResponse struct {
	Bid        *models.Bid  `json:"bid"`
	MinimumBid models.Money `json:"minimum_bid"`
}

type BulkStopResult struct {
	Stopped bool   `json:"stopped"`
	Reason  string `json:"reason,omitempty"`
}

type BulkStopResponse struct {
	Results   map[uuid.UUID]BulkStopResult `json:"results"`
	Succeeded int                          `json:"succeeded"`
	Failed    int                          `json:"failed"`
}

type SweepResponse struct {
	Ended []uuid.UUID `json:"ended"`
	Count int         `json:"count"`
}

type BidPolicyResponse struct {
	MinIncrement                models.Money `json:"min_increment"`
	FirstBidMayEqualStartingBid bool         `json:"first_bid_may_equal_starting_bid"`
}
