package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/models"
	"go.uber.org/zap"
)

// AuctionOutcome describes a finished auction for the ended notices.
type AuctionOutcome struct {
	AuctionID     uuid.UUID
	Title         string
	SellerID      uuid.UUID
	WinnerID      *uuid.UUID
	WinningAmount models.Money
	BidderIDs     []uuid.UUID
	EndedBy       *uuid.UUID
}

// Notifier accepts fire-and-forget notices. Delivery and retries belong to
// whoever consumes the published events.
type Notifier interface {
	NotifyOutbid(ctx context.Context, auctionID, userID uuid.UUID, newAmount models.Money) error
	NotifyBidStopped(ctx context.Context, bid models.Bid, reason string) error
	NotifyAuctionEnded(ctx context.Context, outcome AuctionOutcome) error
	NotifyAdminActionCompleted(ctx context.Context, adminID uuid.UUID, summary string) error
}

// PublishingNotifier turns each notice into per-recipient events on StreamNotifications.
type PublishingNotifier struct {
	publisher Publisher
	log       *zap.Logger
}

func NewPublishingNotifier(publisher Publisher, log *zap.Logger) *PublishingNotifier {
	return &PublishingNotifier{publisher: publisher, log: log}
}

func (n *PublishingNotifier) send(ctx context.Context, eventType string, userID uuid.UUID, text string, extra map[string]any) error {
	payload := map[string]any{
		"user_id": userID.String(),
		"text":    text,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return n.publisher.Publish(ctx, StreamNotifications, Event{Type: eventType, Payload: payload})
}

func (n *PublishingNotifier) NotifyOutbid(ctx context.Context, auctionID, userID uuid.UUID, newAmount models.Money) error {
	return n.send(ctx, EventOutbid, userID,
		fmt.Sprintf("You have been outbid. The current bid is now %s.", newAmount.Display()),
		map[string]any{"auction_id": auctionID.String(), "amount": newAmount.String()},
	)
}

func (n *PublishingNotifier) NotifyBidStopped(ctx context.Context, bid models.Bid, reason string) error {
	text := fmt.Sprintf("Your bid of %s was stopped by an administrator.", bid.Amount.Display())
	if reason != "" {
		text += " Reason: " + reason
	}
	return n.send(ctx, EventBidStopped, bid.BidderID, text, map[string]any{
		"auction_id": bid.AuctionID.String(),
		"bid_id":     bid.ID.String(),
		"reason":     reason,
	})
}

func (n *PublishingNotifier) NotifyAuctionEnded(ctx context.Context, o AuctionOutcome) error {
	base := map[string]any{"auction_id": o.AuctionID.String()}
	var errs []error

	for _, bidderID := range o.BidderIDs {
		if o.WinnerID != nil && bidderID == *o.WinnerID {
			continue
		}
		errs = append(errs, n.send(ctx, EventAuctionLost, bidderID,
			fmt.Sprintf("The auction %q has ended. Your bid did not win.", o.Title), base))
	}

	if o.WinnerID != nil {
		errs = append(errs, n.send(ctx, EventAuctionWon, *o.WinnerID,
			fmt.Sprintf("Congratulations! You won %q with a bid of %s.", o.Title, o.WinningAmount.Display()),
			map[string]any{"auction_id": o.AuctionID.String(), "amount": o.WinningAmount.String()}))
		errs = append(errs, n.send(ctx, EventAuctionSold, o.SellerID,
			fmt.Sprintf("Your auction %q has ended with a winning bid of %s.", o.Title, o.WinningAmount.Display()),
			map[string]any{"auction_id": o.AuctionID.String(), "amount": o.WinningAmount.String(), "winner_id": o.WinnerID.String()}))
	} else {
		errs = append(errs, n.send(ctx, EventAuctionUnsold, o.SellerID,
			fmt.Sprintf("Your auction %q has ended with no valid bids.", o.Title), base))
	}

	status := map[string]any{
		"auction_id": o.AuctionID.String(),
		"new_status": models.AuctionStatusEnded,
	}
	if o.WinnerID != nil {
		status["winner_id"] = o.WinnerID.String()
	}
	errs = append(errs, n.publisher.Publish(ctx, StreamAuctions, Event{Type: EventAuctionStatusChanged, Payload: status}))

	return errors.Join(errs...)
}

func (n *PublishingNotifier) NotifyAdminActionCompleted(ctx context.Context, adminID uuid.UUID, summary string) error {
	return n.send(ctx, EventAdminActionCompleted, adminID, summary, nil)
}

// LogNotifier only logs notices. Used when no Redis is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyOutbid(_ context.Context, auctionID, userID uuid.UUID, newAmount models.Money) error {
	n.log.Info("notify outbid", zap.String("auction_id", auctionID.String()), zap.String("user_id", userID.String()), zap.String("amount", newAmount.String()))
	return nil
}

func (n *LogNotifier) NotifyBidStopped(_ context.Context, bid models.Bid, reason string) error {
	n.log.Info("notify bid stopped", zap.String("bid_id", bid.ID.String()), zap.String("user_id", bid.BidderID.String()), zap.String("reason", reason))
	return nil
}

func (n *LogNotifier) NotifyAuctionEnded(_ context.Context, o AuctionOutcome) error {
	fields := []zap.Field{zap.String("auction_id", o.AuctionID.String()), zap.Int("bidders", len(o.BidderIDs))}
	if o.WinnerID != nil {
		fields = append(fields, zap.String("winner_id", o.WinnerID.String()))
	}
	n.log.Info("notify auction ended", fields...)
	return nil
}

func (n *LogNotifier) NotifyAdminActionCompleted(_ context.Context, adminID uuid.UUID, summary string) error {
	n.log.Info("notify admin action completed", zap.String("admin_id", adminID.String()), zap.String("summary", summary))
	return nil
}
