package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/events"
	"github.com/samirnavas/who-gets-it/internal/metrics"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/samirnavas/who-gets-it/internal/rbac"
	"github.com/samirnavas/who-gets-it/internal/repositories"
	"go.uber.org/zap"
)

const maxTitleLength = 200

// Finish triggers, used as the metrics label and in logs.
const (
	triggerAdmin      = "admin"
	triggerExpiry     = "expiry"
	triggerAdminSweep = "admin_sweep"
)

type AuctionOptions struct {
	// LegacyCancelAudit records cancellations as end_auction with a
	// "CANCELLED: " reason prefix instead of cancel_auction.
	LegacyCancelAudit bool
	// SweepBatchSize bounds how many expired auctions one listing query returns.
	SweepBatchSize int
}

// EndResult is the outcome of ending an auction.
type EndResult struct {
	Auction    models.Auction `json:"auction"`
	WinnerID   *uuid.UUID     `json:"winner_id,omitempty"`
	WinningBid *models.Bid    `json:"winning_bid,omitempty"`
}

type CreateAuctionInput struct {
	Title       string
	Description *string
	StartingBid models.Money
	EndTime     time.Time
}

// AuctionService owns the active -> ended/cancelled state machine.
type AuctionService struct {
	store    repositories.Store
	bids     *BidService
	guard    *PermissionGuard
	dispatch *Dispatcher
	opts     AuctionOptions
	log      *zap.Logger
}

func NewAuctionService(store repositories.Store, bids *BidService, guard *PermissionGuard, dispatch *Dispatcher, opts AuctionOptions, log *zap.Logger) *AuctionService {
	if opts.SweepBatchSize <= 0 {
		opts.SweepBatchSize = 500
	}
	return &AuctionService{store: store, bids: bids, guard: guard, dispatch: dispatch, opts: opts, log: log}
}

func (s *AuctionService) CreateAuction(ctx context.Context, actor auth.Actor, in CreateAuctionInput) (*models.Auction, error) {
	if actor.IsZero() {
		return nil, reject(KindPermission, ReasonAuthRequired)
	}
	if !rbac.HasPermission(actor.Role, rbac.PermCreateAuction) {
		return nil, reject(KindPermission, "you are not allowed to create auctions")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, reject(KindValidation, ReasonTitleRequired)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, reject(KindValidation, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if in.StartingBid <= 0 {
		return nil, reject(KindValidation, ReasonStartingBidInvalid)
	}
	if in.StartingBid > models.MaxMoney {
		return nil, reject(KindValidation, ReasonAmountTooLarge)
	}
	now := s.store.Now()
	if !in.EndTime.After(now) {
		return nil, reject(KindValidation, ReasonEndTimeInPast)
	}

	auction := &models.Auction{
		OwnerID:     actor.UserID,
		Title:       title,
		Description: in.Description,
		StartingBid: in.StartingBid,
		CurrentBid:  in.StartingBid,
		EndTime:     in.EndTime.UTC(),
		Status:      models.AuctionStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateAuction(ctx, auction); err != nil {
		return nil, persistenceFault("create auction", err)
	}

	s.log.Info("auction created", zap.String("auction_id", auction.ID.String()), zap.String("owner_id", actor.UserID.String()))
	return auction, nil
}

func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, reject(KindNotFound, ReasonAuctionNotFound)
		}
		return nil, persistenceFault("get auction", err)
	}
	return auction, nil
}

func (s *AuctionService) ListAuctions(ctx context.Context, f repositories.AuctionFilter) ([]models.Auction, error) {
	if f.Status != nil && !models.IsValidAuctionStatus(*f.Status) {
		return nil, reject(KindValidation, "unknown auction status")
	}
	auctions, err := s.store.ListAuctions(ctx, f)
	if err != nil {
		return nil, persistenceFault("list auctions", err)
	}
	return auctions, nil
}

func (s *AuctionService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	return s.bids.ListBids(ctx, auctionID)
}

// EndAuction ends an active auction on an admin's order and declares the
// highest active bidder the winner.
func (s *AuctionService) EndAuction(ctx context.Context, actor auth.Actor, auctionID uuid.UUID, reason string) (*EndResult, error) {
	if err := s.guard.Validate(ctx, actor, models.ActionEndAuction, &auctionID); err != nil {
		return nil, err
	}

	adminID := actor.UserID
	var result *EndResult
	var outcome events.AuctionOutcome
	err := s.store.InTx(ctx, func(tx repositories.Tx) error {
		var err error
		result, outcome, err = s.finish(ctx, tx, auctionID, models.AuctionStatusEnded, &adminID, false)
		if err != nil {
			return err
		}

		extra := map[string]any{"current_bid": result.Auction.CurrentBid.String()}
		if result.WinnerID != nil {
			extra["winner_id"] = result.WinnerID.String()
			extra["winning_bid_id"] = result.WinningBid.ID.String()
		}
		_, err = recordAction(ctx, tx, *result.Auction.EndedAt, adminID, models.ActionEndAuction, &auctionID, reason, extra)
		return err
	})
	if err != nil {
		return nil, s.finishFailed("end auction", auctionID, err)
	}

	countActions(models.ActionEndAuction)
	metrics.AuctionsFinishedTotal.WithLabelValues(models.AuctionStatusEnded, triggerAdmin).Inc()
	s.log.Info("auction ended by admin", zap.String("auction_id", auctionID.String()), zap.String("admin_id", adminID.String()))

	s.notifyEnded(ctx, outcome)
	s.dispatch.dispatch(ctx, "admin_action_completed", func(ctx context.Context, n events.Notifier) error {
		return n.NotifyAdminActionCompleted(ctx, adminID, endSummary(result))
	})
	return result, nil
}

// CancelAuction terminates an active auction without a winner. A reason is required.
func (s *AuctionService) CancelAuction(ctx context.Context, actor auth.Actor, auctionID uuid.UUID, reason string) (*models.Auction, error) {
	if err := s.guard.Validate(ctx, actor, models.ActionCancelAuction, &auctionID); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, reject(KindValidation, ReasonReasonRequired)
	}

	actionType, auditReason := models.ActionCancelAuction, reason
	if s.opts.LegacyCancelAudit {
		actionType, auditReason = models.ActionEndAuction, models.LegacyCancelReasonPrefix+reason
	}

	adminID := actor.UserID
	var result *EndResult
	err := s.store.InTx(ctx, func(tx repositories.Tx) error {
		var err error
		result, _, err = s.finish(ctx, tx, auctionID, models.AuctionStatusCancelled, &adminID, false)
		if err != nil {
			return err
		}
		_, err = recordAction(ctx, tx, *result.Auction.EndedAt, adminID, actionType, &auctionID, auditReason,
			map[string]any{"status": models.AuctionStatusCancelled})
		return err
	})
	if err != nil {
		return nil, s.finishFailed("cancel auction", auctionID, err)
	}

	countActions(actionType)
	metrics.AuctionsFinishedTotal.WithLabelValues(models.AuctionStatusCancelled, triggerAdmin).Inc()
	s.log.Info("auction cancelled", zap.String("auction_id", auctionID.String()), zap.String("admin_id", adminID.String()))

	title := result.Auction.Title
	s.dispatch.dispatch(ctx, "admin_action_completed", func(ctx context.Context, n events.Notifier) error {
		return n.NotifyAdminActionCompleted(ctx, adminID, fmt.Sprintf("Auction %q was cancelled.", title))
	})
	return &result.Auction, nil
}

// EndAuctionNaturally ends an auction whose end time has passed. No admin
// is recorded and no audit row is written.
func (s *AuctionService) EndAuctionNaturally(ctx context.Context, auctionID uuid.UUID) (*EndResult, error) {
	return s.endNaturally(ctx, auctionID, triggerExpiry)
}

func (s *AuctionService) endNaturally(ctx context.Context, auctionID uuid.UUID, trigger string) (*EndResult, error) {
	var result *EndResult
	var outcome events.AuctionOutcome
	err := s.store.InTx(ctx, func(tx repositories.Tx) error {
		var err error
		result, outcome, err = s.finish(ctx, tx, auctionID, models.AuctionStatusEnded, nil, true)
		return err
	})
	if err != nil {
		return nil, s.finishFailed("end auction naturally", auctionID, err)
	}

	metrics.AuctionsFinishedTotal.WithLabelValues(models.AuctionStatusEnded, trigger).Inc()
	s.notifyEnded(ctx, outcome)
	return result, nil
}

// finish locks the auction, moves it to status and snapshots the winner.
// requireExpired is set for natural expiry.
func (s *AuctionService) finish(ctx context.Context, tx repositories.Tx, auctionID uuid.UUID, status string, endedBy *uuid.UUID, requireExpired bool) (*EndResult, events.AuctionOutcome, error) {
	var outcome events.AuctionOutcome

	auction, err := tx.LockAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, outcome, reject(KindNotFound, ReasonAuctionNotFound)
		}
		return nil, outcome, err
	}
	if !models.IsValidAuctionTransition(auction.Status, status) {
		return nil, outcome, reject(KindConflict, alreadyFinishedReason(auction.Status))
	}

	now := s.store.Now()
	if requireExpired && !auction.HasExpired(now) {
		return nil, outcome, reject(KindPrecondition, ReasonAuctionNotExpired)
	}

	result := &EndResult{}
	if status == models.AuctionStatusEnded {
		winner, err := tx.HighestActiveBid(ctx, auctionID)
		if err != nil {
			return nil, outcome, err
		}
		if winner != nil {
			id := winner.BidderID
			result.WinnerID = &id
			result.WinningBid = winner
		}

		bidders, err := tx.ListActiveBidderIDs(ctx, auctionID)
		if err != nil {
			return nil, outcome, err
		}
		outcome = events.AuctionOutcome{
			AuctionID: auction.ID,
			Title:     auction.Title,
			SellerID:  auction.OwnerID,
			WinnerID:  result.WinnerID,
			BidderIDs: bidders,
			EndedBy:   endedBy,
		}
		if winner != nil {
			outcome.WinningAmount = winner.Amount
		}
	}

	if err := tx.FinishAuction(ctx, auctionID, status, now, endedBy); err != nil {
		if errors.Is(err, repositories.ErrNotActive) {
			return nil, outcome, reject(KindConflict, ReasonAuctionNoLonger)
		}
		return nil, outcome, err
	}

	auction.Status = status
	auction.EndedAt = &now
	auction.EndedBy = endedBy
	auction.UpdatedAt = now
	result.Auction = *auction
	return result, outcome, nil
}

func (s *AuctionService) finishFailed(op string, auctionID uuid.UUID, err error) error {
	err = txError(op, err)
	if KindOf(err) == KindPersistence {
		s.log.Error(op+" failed", zap.String("auction_id", auctionID.String()), zap.Error(err))
	}
	return err
}

func (s *AuctionService) notifyEnded(ctx context.Context, outcome events.AuctionOutcome) {
	s.dispatch.dispatch(ctx, "auction_ended", func(ctx context.Context, n events.Notifier) error {
		return n.NotifyAuctionEnded(ctx, outcome)
	})
}

// SweepExpiredAuctions ends every active auction past its end time, each in
// its own transaction. Failures are logged and skipped. Running it again
// with nothing due returns no ids.
func (s *AuctionService) SweepExpiredAuctions(ctx context.Context) ([]uuid.UUID, error) {
	return s.sweep(ctx, triggerExpiry)
}

func (s *AuctionService) sweep(ctx context.Context, trigger string) ([]uuid.UUID, error) {
	start := time.Now()
	ended := []uuid.UUID{}
	failed := 0
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
		result := "ok"
		if failed > 0 {
			result = "partial"
		}
		metrics.SweepRunsTotal.WithLabelValues(result).Inc()
	}()

	for {
		ids, err := s.store.ListExpiredAuctionIDs(ctx, s.store.Now(), s.opts.SweepBatchSize)
		if err != nil {
			failed++
			return ended, persistenceFault("list expired auctions", err)
		}

		endedInBatch := 0
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return ended, err
			}
			if _, err := s.endNaturally(ctx, id, trigger); err != nil {
				if KindOf(err) == KindConflict {
					s.log.Debug("expired auction already finished", zap.String("auction_id", id.String()))
					continue
				}
				failed++
				s.log.Warn("failed to end expired auction", zap.String("auction_id", id.String()), zap.String("trigger", trigger), zap.Error(err))
				continue
			}
			ended = append(ended, id)
			endedInBatch++
		}

		if len(ids) < s.opts.SweepBatchSize || endedInBatch == 0 {
			break
		}
	}

	if len(ended) > 0 {
		s.log.Info("expired auctions ended", zap.Int("count", len(ended)), zap.String("trigger", trigger))
	}
	return ended, nil
}

func endSummary(r *EndResult) string {
	if r.WinnerID == nil {
		return fmt.Sprintf("Auction %q ended with no valid bids.", r.Auction.Title)
	}
	return fmt.Sprintf("Auction %q ended. Winner %s at %s.", r.Auction.Title, r.WinnerID, r.WinningBid.Amount.Display())
}
