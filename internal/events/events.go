package events

import "context"

// Streams
const (
	StreamNotifications = "events:notifications"
	StreamAuctions      = "events:auctions"
)

// Event types
const (
	EventOutbid               = "outbid"
	EventBidStopped           = "bid_stopped"
	EventAuctionWon           = "auction_won"
	EventAuctionLost          = "auction_lost"
	EventAuctionSold          = "auction_sold"
	EventAuctionUnsold        = "auction_unsold"
	EventAuctionStatusChanged = "auction_status_changed"
	EventAdminActionCompleted = "admin_action_completed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
