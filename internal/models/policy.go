package models

import "math"

// BidPolicy controls the minimum acceptable bid.
type BidPolicy struct {
	// MinIncrement is added to the highest active bid to get the next minimum.
	MinIncrement Money
	// FirstBidMayEqualStartingBid allows an opening bid equal to the starting bid.
	// When false the opening bid must exceed it by MinIncrement.
	FirstBidMayEqualStartingBid bool
}

func DefaultBidPolicy() BidPolicy {
	return BidPolicy{MinIncrement: Cent}
}

// MinimumBid returns the smallest amount that may be bid given the starting
// bid and the current highest active bid (nil if none).
func (p BidPolicy) MinimumBid(startingBid Money, highest *Bid) Money {
	inc := p.MinIncrement
	if inc <= 0 {
		inc = Cent
	}
	if highest != nil {
		return addSaturating(highest.Amount, inc)
	}
	if p.FirstBidMayEqualStartingBid {
		return startingBid
	}
	return addSaturating(startingBid, inc)
}

// addSaturating returns a+b for b > 0, clamped at math.MaxInt64.
func addSaturating(a, b Money) Money {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
