package models

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHighestActive(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	early := Bid{ID: uuid.New(), Amount: 1500, Status: BidStatusActive, CreatedAt: t0}
	late := Bid{ID: uuid.New(), Amount: 1500, Status: BidStatusActive, CreatedAt: t0.Add(time.Minute)}
	stopped := Bid{ID: uuid.New(), Amount: 9000, Status: BidStatusStopped, CreatedAt: t0}
	low := Bid{ID: uuid.New(), Amount: 1100, Status: BidStatusActive, CreatedAt: t0}

	tests := []struct {
		name string
		bids []Bid
		want *uuid.UUID
	}{
		{"empty", nil, nil},
		{"only stopped", []Bid{stopped}, nil},
		{"stopped excluded", []Bid{stopped, low}, &low.ID},
		{"tie goes to earliest", []Bid{late, early, low}, &early.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HighestActive(tt.bids)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected no leader, got %s", got.ID)
				}
				return
			}
			if got == nil || got.ID != *tt.want {
				t.Fatalf("unexpected leader %v, want %s", got, *tt.want)
			}
		})
	}
}

func TestBidPolicyMinimumBid(t *testing.T) {
	highest := &Bid{Amount: 1500}
	tests := []struct {
		name    string
		policy  BidPolicy
		highest *Bid
		want    Money
	}{
		{"no bids strict", DefaultBidPolicy(), nil, 1001},
		{"no bids may equal", BidPolicy{MinIncrement: Cent, FirstBidMayEqualStartingBid: true}, nil, 1000},
		{"with leader", DefaultBidPolicy(), highest, 1501},
		{"custom increment", BidPolicy{MinIncrement: 50}, highest, 1550},
		{"zero increment falls back to a cent", BidPolicy{}, highest, 1501},
		{"saturates instead of wrapping", DefaultBidPolicy(), &Bid{Amount: math.MaxInt64}, math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.MinimumBid(1000, tt.highest); got != tt.want {
				t.Errorf("MinimumBid = %d, want %d", got, tt.want)
			}
		})
	}
}
