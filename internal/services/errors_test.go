package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/samirnavas/who-gets-it/internal/models"
)

func TestKindAndReasonOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", reject(KindConflict, ReasonBidAlreadyStopped))
	storage := persistenceFault("place bid", errors.New("connection reset"))

	tests := []struct {
		name   string
		err    error
		kind   RejectionKind
		reason string
	}{
		{"rejection", reject(KindValidation, ReasonReasonRequired), KindValidation, ReasonReasonRequired},
		{"wrapped rejection", wrapped, KindConflict, ReasonBidAlreadyStopped},
		{"persistence fault", storage, KindPersistence, ReasonInternal},
		{"plain error", errors.New("boom"), KindPersistence, ReasonInternal},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.kind {
			t.Errorf("%s: KindOf = %s, want %s", tt.name, got, tt.kind)
		}
		if got := ReasonOf(tt.err); got != tt.reason {
			t.Errorf("%s: ReasonOf = %q, want %q", tt.name, got, tt.reason)
		}
	}
}

func TestTxErrorKeepsRejections(t *testing.T) {
	rej := reject(KindConflict, ReasonAuctionNoLonger)
	if got := txError("op", rej); got != rej {
		t.Errorf("txError changed a rejection: %v", got)
	}
	if txError("op", nil) != nil {
		t.Error("txError(nil) should be nil")
	}
	if got := KindOf(txError("op", errors.New("deadlock"))); got != KindPersistence {
		t.Errorf("kind = %s, want persistence", got)
	}
}

func TestAlreadyFinishedReason(t *testing.T) {
	tests := map[string]string{
		models.AuctionStatusEnded:     "auction already ended",
		models.AuctionStatusCancelled: "auction already cancelled",
		"weird":                       ReasonAuctionNotActive,
	}
	for status, want := range tests {
		if got := alreadyFinishedReason(status); got != want {
			t.Errorf("alreadyFinishedReason(%q) = %q, want %q", status, got, want)
		}
	}
}
