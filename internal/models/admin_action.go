package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin action types
const (
	ActionStopBid        = "stop_bid"
	ActionEndAuction     = "end_auction"
	ActionCancelAuction  = "cancel_auction"
	ActionBulkStopBids   = "bulk_stop_bids"
	ActionAssignAdmin    = "assign_admin"
	ActionRemoveAdmin    = "remove_admin"
	ActionAutoEndExpired = "auto_end_expired"
)

// LegacyCancelReasonPrefix marks cancellations recorded under end_auction.
const LegacyCancelReasonPrefix = "CANCELLED: "

var adminActionTypes = map[string]bool{
	ActionStopBid:        true,
	ActionEndAuction:     true,
	ActionCancelAuction:  true,
	ActionBulkStopBids:   true,
	ActionAssignAdmin:    true,
	ActionRemoveAdmin:    true,
	ActionAutoEndExpired: true,
}

func IsValidActionType(t string) bool {
	return adminActionTypes[t]
}

// AdminAction is an append-only audit record of a privileged mutation.
type AdminAction struct {
	ID         uuid.UUID      `json:"id"`
	AdminID    uuid.UUID      `json:"admin_id"`
	ActionType string         `json:"action_type"`
	TargetID   *uuid.UUID     `json:"target_id,omitempty"`
	Reason     *string        `json:"reason,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SecurityEvent records a rejected privileged attempt.
type SecurityEvent struct {
	ID         uuid.UUID  `json:"id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	ActionType string     `json:"action_type"`
	TargetID   *uuid.UUID `json:"target_id,omitempty"`
	Reason     string     `json:"reason"`
	CreatedAt  time.Time  `json:"created_at"`
}
