package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samirnavas/who-gets-it/internal/models"
)

// pgScope binds the repos to one querier: the pool or an open pgx.Tx.
type pgScope struct {
	users    *UserRepo
	auctions *AuctionRepo
	bids     *BidRepo
	audit    *AuditRepo
}

func newPgScope(q querier) pgScope {
	return pgScope{
		users:    NewUserRepo(q),
		auctions: NewAuctionRepo(q),
		bids:     NewBidRepo(q),
		audit:    NewAuditRepo(q),
	}
}

// PgStore is the Postgres-backed Store.
type PgStore struct {
	pgScope
	pool  *pgxpool.Pool
	clock Clock
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pgScope: newPgScope(pool), pool: pool, clock: systemClock}
}

func (s *PgStore) WithClock(c Clock) *PgStore {
	s.clock = c
	return s
}

func (s *PgStore) Now() time.Time {
	return s.clock()
}

// InTx runs fn in a READ COMMITTED transaction. Serialization on an auction
// comes from LockAuction (SELECT ... FOR UPDATE), not the isolation level.
func (s *PgStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newPgScope(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s pgScope) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s pgScope) CreateUser(ctx context.Context, u *models.User) error {
	return s.users.Create(ctx, u)
}

func (s pgScope) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s pgScope) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetForUpdate(ctx, id)
}

func (s pgScope) UpdateUserRole(ctx context.Context, id uuid.UUID, role string) error {
	return s.users.UpdateRole(ctx, id, role)
}

func (s pgScope) CreateAuction(ctx context.Context, a *models.Auction) error {
	return s.auctions.Create(ctx, a)
}

func (s pgScope) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return s.auctions.GetByID(ctx, id)
}

func (s pgScope) LockAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return s.auctions.GetForUpdate(ctx, id)
}

func (s pgScope) ListAuctions(ctx context.Context, f AuctionFilter) ([]models.Auction, error) {
	return s.auctions.List(ctx, f)
}

func (s pgScope) UpdateAuctionAggregate(ctx context.Context, id uuid.UUID, currentBid models.Money, highestBidderID *uuid.UUID) error {
	return s.auctions.UpdateAggregate(ctx, id, currentBid, highestBidderID)
}

func (s pgScope) FinishAuction(ctx context.Context, id uuid.UUID, status string, endedAt time.Time, endedBy *uuid.UUID) error {
	return s.auctions.Finish(ctx, id, status, endedAt, endedBy)
}

func (s pgScope) ListExpiredAuctionIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return s.auctions.ListExpiredIDs(ctx, now, limit)
}

func (s pgScope) CreateBid(ctx context.Context, b *models.Bid) error {
	return s.bids.Create(ctx, b)
}

func (s pgScope) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return s.bids.GetByID(ctx, id)
}

func (s pgScope) LockBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return s.bids.GetForUpdate(ctx, id)
}

func (s pgScope) StopBid(ctx context.Context, id uuid.UUID, stoppedAt time.Time, stoppedBy uuid.UUID) error {
	return s.bids.Stop(ctx, id, stoppedAt, stoppedBy)
}

func (s pgScope) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	return s.bids.ListByAuction(ctx, auctionID)
}

func (s pgScope) HighestActiveBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	return s.bids.HighestActive(ctx, auctionID)
}

func (s pgScope) ListActiveBidderIDs(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error) {
	return s.bids.ListActiveBidderIDs(ctx, auctionID)
}

func (s pgScope) IsBidderBarred(ctx context.Context, auctionID, userID uuid.UUID) (bool, error) {
	return s.bids.IsBarred(ctx, auctionID, userID)
}

func (s pgScope) BarBidder(ctx context.Context, auctionID, userID, bidID uuid.UUID) error {
	return s.bids.Bar(ctx, auctionID, userID, bidID)
}

func (s pgScope) CreateAdminAction(ctx context.Context, a *models.AdminAction) error {
	return s.audit.Log(ctx, a)
}

func (s pgScope) ListAdminActions(ctx context.Context, f AdminActionFilter) ([]models.AdminAction, error) {
	return s.audit.List(ctx, f)
}

func (s pgScope) CreateSecurityEvent(ctx context.Context, e *models.SecurityEvent) error {
	return s.audit.LogSecurityEvent(ctx, e)
}
