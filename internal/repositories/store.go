package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrNotActive is returned by conditional updates whose row left the active state.
	ErrNotActive = errors.New("row is no longer active")
)

// Tx is the scope of a single transaction. Every method runs against the
// same underlying transaction, so a mutation, the aggregate recompute and
// the audit row it documents commit or roll back together.
type Tx interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// LockUser reads the user and holds a row lock until the transaction ends.
	LockUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUserRole(ctx context.Context, id uuid.UUID, role string) error

	CreateAuction(ctx context.Context, a *models.Auction) error
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	// LockAuction reads the auction and holds a row lock until the transaction ends.
	LockAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	ListAuctions(ctx context.Context, f AuctionFilter) ([]models.Auction, error)
	UpdateAuctionAggregate(ctx context.Context, id uuid.UUID, currentBid models.Money, highestBidderID *uuid.UUID) error
	// FinishAuction moves an active auction to a terminal status; ErrNotActive if it already left active.
	FinishAuction(ctx context.Context, id uuid.UUID, status string, endedAt time.Time, endedBy *uuid.UUID) error
	ListExpiredAuctionIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	CreateBid(ctx context.Context, b *models.Bid) error
	GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	LockBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	// StopBid marks an active bid stopped; ErrNotActive if it was already stopped.
	StopBid(ctx context.Context, id uuid.UUID, stoppedAt time.Time, stoppedBy uuid.UUID) error
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error)
	// HighestActiveBid returns nil when the auction has no active bids.
	HighestActiveBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error)
	ListActiveBidderIDs(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error)

	IsBidderBarred(ctx context.Context, auctionID, userID uuid.UUID) (bool, error)
	BarBidder(ctx context.Context, auctionID, userID, bidID uuid.UUID) error

	CreateAdminAction(ctx context.Context, a *models.AdminAction) error
	ListAdminActions(ctx context.Context, f AdminActionFilter) ([]models.AdminAction, error)
	CreateSecurityEvent(ctx context.Context, e *models.SecurityEvent) error
}

// Store is the persistence gateway. Its embedded Tx methods run outside any
// explicit transaction, each as its own statement.
type Store interface {
	Tx
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Now() time.Time
}

type AuctionFilter struct {
	Status  *string
	OwnerID *uuid.UUID
	Limit   int
	Offset  int
}

type AdminActionFilter struct {
	AdminID    *uuid.UUID
	ActionType *string
	TargetID   *uuid.UUID
	Limit      int
	Offset     int
}

// Clock returns the current time. Stores default to UTC wall time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

var (
	_ Store = (*PgStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
