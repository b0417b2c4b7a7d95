package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/events"
	"github.com/samirnavas/who-gets-it/internal/metrics"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/samirnavas/who-gets-it/internal/rbac"
	"github.com/samirnavas/who-gets-it/internal/repositories"
	"go.uber.org/zap"
)

// BidService owns bid validity and the cached leader on each auction.
type BidService struct {
	store    repositories.Store
	policy   models.BidPolicy
	dispatch *Dispatcher
	log      *zap.Logger
}

func NewBidService(store repositories.Store, policy models.BidPolicy, dispatch *Dispatcher, log *zap.Logger) *BidService {
	return &BidService{store: store, policy: policy, dispatch: dispatch, log: log}
}

func (s *BidService) Policy() models.BidPolicy {
	return s.policy
}

// ComputeHighestActiveBid returns the leading active bid, or nil when the
// auction has none. Ties go to the earliest bid.
func (s *BidService) ComputeHighestActiveBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	if _, err := s.store.GetAuction(ctx, auctionID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, reject(KindNotFound, ReasonAuctionNotFound)
		}
		return nil, persistenceFault("get auction", err)
	}
	bid, err := s.store.HighestActiveBid(ctx, auctionID)
	if err != nil {
		return nil, persistenceFault("highest active bid", err)
	}
	return bid, nil
}

// MinimumBid returns the smallest amount the auction accepts right now.
func (s *BidService) MinimumBid(ctx context.Context, auctionID uuid.UUID) (models.Money, error) {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, reject(KindNotFound, ReasonAuctionNotFound)
		}
		return 0, persistenceFault("get auction", err)
	}
	highest, err := s.store.HighestActiveBid(ctx, auctionID)
	if err != nil {
		return 0, persistenceFault("highest active bid", err)
	}
	return s.policy.MinimumBid(auction.StartingBid, highest), nil
}

// ValidateBid checks a prospective bid against the committed state without
// taking any lock.
func (s *BidService) ValidateBid(ctx context.Context, auctionID uuid.UUID, amount models.Money, bidderID uuid.UUID) error {
	if amount <= 0 {
		return reject(KindValidation, ReasonAmountNotPositive)
	}
	if amount > models.MaxMoney {
		return reject(KindValidation, ReasonAmountTooLarge)
	}
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return reject(KindNotFound, ReasonAuctionNotFound)
		}
		return persistenceFault("get auction", err)
	}
	_, err = s.checkBid(ctx, s.store, auction, amount, bidderID, s.store.Now(), false)
	return err
}

// checkBid applies the bid rules in order and returns the current leader.
// Inside a transaction a changed status or minimum is a lost race.
func (s *BidService) checkBid(ctx context.Context, q repositories.Tx, auction *models.Auction, amount models.Money, bidderID uuid.UUID, now time.Time, locked bool) (*models.Bid, error) {
	if !auction.IsActive() {
		if locked {
			return nil, reject(KindConflict, ReasonAuctionNoLonger)
		}
		return nil, reject(KindPrecondition, ReasonAuctionNotActive)
	}
	if auction.HasExpired(now) {
		return nil, reject(KindPrecondition, ReasonAuctionHasEnded)
	}
	if auction.IsOwnedBy(bidderID) {
		return nil, reject(KindPrecondition, ReasonOwnBid)
	}

	highest, err := q.HighestActiveBid(ctx, auction.ID)
	if err != nil {
		return nil, err
	}
	if minimum := s.policy.MinimumBid(auction.StartingBid, highest); amount < minimum {
		kind := KindPrecondition
		if locked {
			kind = KindConflict
		}
		return nil, reject(kind, minimumBidReason(minimum))
	}

	barred, err := q.IsBidderBarred(ctx, auction.ID, bidderID)
	if err != nil {
		return nil, err
	}
	if barred {
		return nil, reject(KindPrecondition, ReasonBidderBarred)
	}
	return highest, nil
}

// PlaceBid validates, then re-validates under the auction row lock, inserts
// the bid and refreshes the auction's cached leader in one transaction.
// The previous leader is told they were outbid after commit.
func (s *BidService) PlaceBid(ctx context.Context, actor auth.Actor, auctionID uuid.UUID, amount models.Money) (*models.Bid, error) {
	bid, previous, err := s.placeBid(ctx, actor, auctionID, amount)
	if err != nil {
		metrics.BidsRejectedTotal.WithLabelValues(string(KindOf(err))).Inc()
		if KindOf(err) == KindPersistence {
			s.log.Error("place bid failed", zap.String("auction_id", auctionID.String()), zap.Error(err))
		}
		return nil, err
	}
	metrics.BidsPlacedTotal.Inc()

	s.log.Info("bid placed",
		zap.String("auction_id", auctionID.String()),
		zap.String("bid_id", bid.ID.String()),
		zap.String("bidder_id", bid.BidderID.String()),
		zap.String("amount", bid.Amount.String()),
	)

	if previous != nil && previous.BidderID != bid.BidderID {
		s.dispatch.dispatch(ctx, "outbid", func(ctx context.Context, n events.Notifier) error {
			return n.NotifyOutbid(ctx, auctionID, previous.BidderID, bid.Amount)
		})
	}
	return bid, nil
}

func (s *BidService) placeBid(ctx context.Context, actor auth.Actor, auctionID uuid.UUID, amount models.Money) (*models.Bid, *models.Bid, error) {
	if actor.IsZero() {
		return nil, nil, reject(KindPermission, ReasonAuthRequired)
	}
	if !rbac.HasPermission(actor.Role, rbac.PermPlaceBid) {
		return nil, nil, reject(KindPermission, "you are not allowed to bid")
	}
	if err := s.ValidateBid(ctx, auctionID, amount, actor.UserID); err != nil {
		return nil, nil, err
	}

	var bid *models.Bid
	var previous *models.Bid
	err := s.store.InTx(ctx, func(tx repositories.Tx) error {
		auction, err := tx.LockAuction(ctx, auctionID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return reject(KindNotFound, ReasonAuctionNotFound)
			}
			return err
		}

		now := s.store.Now()
		previous, err = s.checkBid(ctx, tx, auction, amount, actor.UserID, now, true)
		if err != nil {
			return err
		}

		bid = &models.Bid{
			AuctionID: auctionID,
			BidderID:  actor.UserID,
			Amount:    amount,
			Status:    models.BidStatusActive,
			CreatedAt: now,
		}
		if err := tx.CreateBid(ctx, bid); err != nil {
			return err
		}
		return s.RecomputeAuctionAggregate(ctx, tx, auction)
	})
	if err != nil {
		return nil, nil, txError("place bid", err)
	}
	return bid, previous, nil
}

// RecomputeAuctionAggregate re-derives current_bid and highest_bidder from
// the active bids and writes them back. It updates auction in place and must
// run in the transaction of the bid mutation that triggered it.
func (s *BidService) RecomputeAuctionAggregate(ctx context.Context, tx repositories.Tx, auction *models.Auction) error {
	highest, err := tx.HighestActiveBid(ctx, auction.ID)
	if err != nil {
		return err
	}

	current := auction.StartingBid
	var leader *uuid.UUID
	if highest != nil {
		current = highest.Amount
		id := highest.BidderID
		leader = &id
	}

	if err := tx.UpdateAuctionAggregate(ctx, auction.ID, current, leader); err != nil {
		return err
	}
	auction.CurrentBid = current
	auction.HighestBidderID = leader
	return nil
}

// ListBids returns every bid on an auction, leader first.
func (s *BidService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	if _, err := s.store.GetAuction(ctx, auctionID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, reject(KindNotFound, ReasonAuctionNotFound)
		}
		return nil, persistenceFault("get auction", err)
	}
	bids, err := s.store.ListBids(ctx, auctionID)
	if err != nil {
		return nil, persistenceFault("list bids", err)
	}
	return bids, nil
}
