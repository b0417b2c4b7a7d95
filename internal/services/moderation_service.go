package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/events"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/samirnavas/who-gets-it/internal/rbac"
	"github.com/samirnavas/who-gets-it/internal/repositories"
	"go.uber.org/zap"
)

const defaultBulkStopMax = 50

// BulkResult is the per-bid outcome of a bulk stop.
type BulkResult struct {
	Stopped bool   `json:"stopped"`
	Reason  string `json:"reason,omitempty"`
}

// ModerationService runs admin interventions on bids, auctions and roles.
type ModerationService struct {
	store       repositories.Store
	bids        *BidService
	auctions    *AuctionService
	guard       *PermissionGuard
	dispatch    *Dispatcher
	bulkStopMax int
	log         *zap.Logger
}

func NewModerationService(
	store repositories.Store,
	bids *BidService,
	auctions *AuctionService,
	guard *PermissionGuard,
	dispatch *Dispatcher,
	bulkStopMax int,
	log *zap.Logger,
) *ModerationService {
	if bulkStopMax <= 0 || bulkStopMax > defaultBulkStopMax {
		bulkStopMax = defaultBulkStopMax
	}
	return &ModerationService{
		store:       store,
		bids:        bids,
		auctions:    auctions,
		guard:       guard,
		dispatch:    dispatch,
		bulkStopMax: bulkStopMax,
		log:         log,
	}
}

// ValidatePermissions checks that actor may run actionType against targetID
// in its current state. Refusals are recorded as security events.
func (s *ModerationService) ValidatePermissions(ctx context.Context, actor auth.Actor, actionType string, targetID *uuid.UUID) error {
	return s.guard.Validate(ctx, actor, actionType, targetID)
}

// StopBid permanently excludes a bid from the auction, bars its bidder from
// the auction and refreshes the auction's leader.
func (s *ModerationService) StopBid(ctx context.Context, actor auth.Actor, bidID uuid.UUID, reason string) (*models.Bid, error) {
	if err := s.guard.Validate(ctx, actor, models.ActionStopBid, &bidID); err != nil {
		return nil, err
	}

	adminID := actor.UserID
	var stopped *models.Bid
	var wasLeader bool
	err := s.store.InTx(ctx, func(tx repositories.Tx) error {
		peek, err := tx.GetBid(ctx, bidID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return reject(KindNotFound, ReasonBidNotFound)
			}
			return err
		}

		// auction row first, then the bid
		auction, err := tx.LockAuction(ctx, peek.AuctionID)
		if err != nil {
			return err
		}
		if !auction.IsActive() {
			return reject(KindConflict, ReasonAuctionNoLonger)
		}
		bid, err := tx.LockBid(ctx, bidID)
		if err != nil {
			return err
		}
		if !bid.IsActive() {
			return reject(KindConflict, ReasonBidAlreadyStopped)
		}
		wasLeader = auction.HighestBidderID != nil && *auction.HighestBidderID == bid.BidderID

		now := s.store.Now()
		if err := tx.StopBid(ctx, bidID, now, adminID); err != nil {
			if errors.Is(err, repositories.ErrNotActive) {
				return reject(KindConflict, ReasonBidAlreadyStopped)
			}
			return err
		}
		if err := tx.BarBidder(ctx, auction.ID, bid.BidderID, bid.ID); err != nil {
			return err
		}
		bid.Status = models.BidStatusStopped
		bid.StoppedAt = &now
		bid.StoppedBy = &adminID

		_, err = recordAction(ctx, tx, now, adminID, models.ActionStopBid, &bidID, reason, map[string]any{
			"auction_id": auction.ID.String(),
			"bidder_id":  bid.BidderID.String(),
			"amount":     bid.Amount.String(),
			"was_leader": wasLeader,
		})
		if err != nil {
			return err
		}
		stopped = bid

		return s.bids.RecomputeAuctionAggregate(ctx, tx, auction)
	})
	if err != nil {
		err = txError("stop bid", err)
		if KindOf(err) == KindPersistence {
			s.log.Error("stop bid failed", zap.String("bid_id", bidID.String()), zap.Error(err))
		}
		return nil, err
	}

	countActions(models.ActionStopBid)
	s.log.Info("bid stopped",
		zap.String("bid_id", bidID.String()),
		zap.String("auction_id", stopped.AuctionID.String()),
		zap.String("admin_id", adminID.String()),
		zap.Bool("was_leader", wasLeader),
	)

	bid := *stopped
	s.dispatch.dispatch(ctx, "bid_stopped", func(ctx context.Context, n events.Notifier) error {
		return n.NotifyBidStopped(ctx, bid, reason)
	})
	s.dispatch.dispatch(ctx, "admin_action_completed", func(ctx context.Context, n events.Notifier) error {
		return n.NotifyAdminActionCompleted(ctx, adminID, fmt.Sprintf("Bid %s of %s was stopped.", bid.ID, bid.Amount.Display()))
	})
	return stopped, nil
}

// BulkStopBids stops each bid independently and writes one summary audit
// row on top of the per-bid rows.
func (s *ModerationService) BulkStopBids(ctx context.Context, actor auth.Actor, bidIDs []uuid.UUID, reason string) (map[uuid.UUID]BulkResult, error) {
	if err := s.guard.Validate(ctx, actor, models.ActionBulkStopBids, nil); err != nil {
		return nil, err
	}

	// the bound applies to the request as sent, duplicates included
	ids := dedupeIDs(bidIDs)
	if len(bidIDs) > s.bulkStopMax || len(ids) == 0 {
		return nil, reject(KindValidation, fmt.Sprintf("between 1 and %d bid ids are required", s.bulkStopMax))
	}

	results := make(map[uuid.UUID]BulkResult, len(ids))
	succeeded := 0
	for _, id := range ids {
		if _, err := s.StopBid(ctx, actor, id, reason); err != nil {
			results[id] = BulkResult{Stopped: false, Reason: ReasonOf(err)}
			continue
		}
		results[id] = BulkResult{Stopped: true}
		succeeded++
	}

	adminID := actor.UserID
	err := s.store.InTx(ctx, func(tx repositories.Tx) error {
		_, err := recordAction(ctx, tx, s.store.Now(), adminID, models.ActionBulkStopBids, nil, reason, map[string]any{
			"bid_ids":       idStrings(ids),
			"success_count": succeeded,
			"failure_count": len(ids) - succeeded,
		})
		return err
	})
	if err != nil {
		// the per-bid stops are already committed, so report them anyway
		s.log.Error("failed to record bulk stop summary", zap.Int("bids", len(ids)), zap.Error(err))
		return results, txError("record bulk stop", err)
	}
	countActions(models.ActionBulkStopBids)

	s.log.Info("bulk stop finished", zap.String("admin_id", adminID.String()), zap.Int("requested", len(ids)), zap.Int("stopped", succeeded))
	s.dispatch.dispatch(ctx, "admin_action_completed", func(ctx context.Context, n events.Notifier) error {
		return n.NotifyAdminActionCompleted(ctx, adminID, fmt.Sprintf("Bulk stop finished: %d of %d bids stopped.", succeeded, len(ids)))
	})
	return results, nil
}

func (s *ModerationService) AssignAdmin(ctx context.Context, actor auth.Actor, userID uuid.UUID, reason string) (*models.User, error) {
	return s.changeRole(ctx, actor, userID, models.ActionAssignAdmin, models.RoleAdmin, reason)
}

// RemoveAdmin demotes another admin. An admin can never demote themself.
func (s *ModerationService) RemoveAdmin(ctx context.Context, actor auth.Actor, userID uuid.UUID, reason string) (*models.User, error) {
	return s.changeRole(ctx, actor, userID, models.ActionRemoveAdmin, models.RoleUser, reason)
}

func (s *ModerationService) changeRole(ctx context.Context, actor auth.Actor, userID uuid.UUID, actionType, newRole, reason string) (*models.User, error) {
	if err := s.guard.Validate(ctx, actor, actionType, &userID); err != nil {
		return nil, err
	}

	adminID := actor.UserID
	var user *models.User
	err := s.store.InTx(ctx, func(tx repositories.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return reject(KindNotFound, ReasonUserNotFound)
			}
			return err
		}
		if u.Role == newRole {
			if newRole == models.RoleAdmin {
				return reject(KindConflict, ReasonAlreadyAdmin)
			}
			return reject(KindConflict, ReasonNotAdmin)
		}

		oldRole := u.Role
		if err := tx.UpdateUserRole(ctx, userID, newRole); err != nil {
			return err
		}
		u.Role = newRole
		user = u

		_, err = recordAction(ctx, tx, s.store.Now(), adminID, actionType, &userID, reason, map[string]any{
			"old_role": oldRole,
			"new_role": newRole,
		})
		return err
	})
	if err != nil {
		return nil, txError("change role", err)
	}

	countActions(actionType)
	s.log.Info("user role changed", zap.String("user_id", userID.String()), zap.String("role", newRole), zap.String("admin_id", adminID.String()))
	s.dispatch.dispatch(ctx, "admin_action_completed", func(ctx context.Context, n events.Notifier) error {
		return n.NotifyAdminActionCompleted(ctx, adminID, fmt.Sprintf("User %s is now %s.", user.Username, newRole))
	})
	return user, nil
}

// EndExpiredAuctions runs the expiry sweep on an admin's order and records
// one auto_end_expired summary row.
func (s *ModerationService) EndExpiredAuctions(ctx context.Context, actor auth.Actor) ([]uuid.UUID, error) {
	if err := s.guard.Validate(ctx, actor, models.ActionAutoEndExpired, nil); err != nil {
		return nil, err
	}

	ended, sweepErr := s.auctions.sweep(ctx, triggerAdminSweep)

	adminID := actor.UserID
	err := s.store.InTx(ctx, func(tx repositories.Tx) error {
		_, err := recordAction(ctx, tx, s.store.Now(), adminID, models.ActionAutoEndExpired, nil, "", map[string]any{
			"auction_ids": idStrings(ended),
			"count":       len(ended),
		})
		return err
	})
	if err != nil {
		s.log.Error("failed to record expiry sweep", zap.Int("ended", len(ended)), zap.Error(err))
		return ended, txError("record expiry sweep", err)
	}
	countActions(models.ActionAutoEndExpired)

	s.dispatch.dispatch(ctx, "admin_action_completed", func(ctx context.Context, n events.Notifier) error {
		return n.NotifyAdminActionCompleted(ctx, adminID, fmt.Sprintf("Expiry sweep ended %d auctions.", len(ended)))
	})
	return ended, sweepErr
}

func (s *ModerationService) ListAdminActions(ctx context.Context, actor auth.Actor, f repositories.AdminActionFilter) ([]models.AdminAction, error) {
	if err := s.guard.Require(ctx, actor, rbac.PermViewAudit); err != nil {
		return nil, err
	}
	if f.ActionType != nil && !models.IsValidActionType(*f.ActionType) {
		return nil, reject(KindValidation, ReasonUnknownAction)
	}
	actions, err := s.store.ListAdminActions(ctx, f)
	if err != nil {
		return nil, persistenceFault("list admin actions", err)
	}
	return actions, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
