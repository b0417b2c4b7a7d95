package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/metrics"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/samirnavas/who-gets-it/internal/rbac"
	"github.com/samirnavas/who-gets-it/internal/repositories"
	"go.uber.org/zap"
)

// PermissionGuard checks that an actor may perform an admin action on a
// target in its current state. Every refusal is written to the security log.
type PermissionGuard struct {
	store repositories.Store
	log   *zap.Logger
}

func NewPermissionGuard(store repositories.Store, log *zap.Logger) *PermissionGuard {
	return &PermissionGuard{store: store, log: log}
}

// Validate returns nil when actor may perform actionType on targetID.
// targetID is nil for actions without a single target (bulk stop, sweep).
func (g *PermissionGuard) Validate(ctx context.Context, actor auth.Actor, actionType string, targetID *uuid.UUID) error {
	if !models.IsValidActionType(actionType) {
		return reject(KindValidation, ReasonUnknownAction)
	}
	if actor.IsZero() || !rbac.CanPerform(actor.Role, actionType) {
		return g.deny(ctx, actor, actionType, targetID, reject(KindPermission, ReasonAdminRequired))
	}

	switch actionType {
	case models.ActionStopBid:
		if targetID == nil {
			return reject(KindValidation, ReasonBidNotFound)
		}
		return g.checkBidTarget(ctx, actor, *targetID)
	case models.ActionEndAuction, models.ActionCancelAuction:
		if targetID == nil {
			return reject(KindValidation, ReasonAuctionNotFound)
		}
		return g.checkAuctionTarget(ctx, actor, actionType, *targetID)
	case models.ActionAssignAdmin, models.ActionRemoveAdmin:
		if targetID == nil {
			return reject(KindValidation, ReasonUserNotFound)
		}
		return g.checkRoleTarget(ctx, actor, actionType, *targetID)
	}
	return nil
}

// Require checks a plain permission that has no admin action type, such as
// reading the audit log.
func (g *PermissionGuard) Require(ctx context.Context, actor auth.Actor, permission string) error {
	if actor.IsZero() || !rbac.HasPermission(actor.Role, permission) {
		return g.deny(ctx, actor, permission, nil, reject(KindPermission, ReasonAdminRequired))
	}
	return nil
}

func (g *PermissionGuard) checkBidTarget(ctx context.Context, actor auth.Actor, bidID uuid.UUID) error {
	bid, err := g.store.GetBid(ctx, bidID)
	if errors.Is(err, repositories.ErrNotFound) {
		return g.deny(ctx, actor, models.ActionStopBid, &bidID, reject(KindNotFound, ReasonBidNotFound))
	}
	if err != nil {
		return persistenceFault("get bid", err)
	}
	if !bid.IsActive() {
		return g.deny(ctx, actor, models.ActionStopBid, &bidID, reject(KindPrecondition, ReasonBidAlreadyStopped))
	}

	auction, err := g.store.GetAuction(ctx, bid.AuctionID)
	if err != nil {
		return persistenceFault("get auction", err)
	}
	if !auction.IsActive() {
		return g.deny(ctx, actor, models.ActionStopBid, &bidID, reject(KindPrecondition, ReasonAuctionNotActive))
	}
	return nil
}

func (g *PermissionGuard) checkAuctionTarget(ctx context.Context, actor auth.Actor, actionType string, auctionID uuid.UUID) error {
	auction, err := g.store.GetAuction(ctx, auctionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return g.deny(ctx, actor, actionType, &auctionID, reject(KindNotFound, ReasonAuctionNotFound))
	}
	if err != nil {
		return persistenceFault("get auction", err)
	}
	if !auction.IsActive() {
		return g.deny(ctx, actor, actionType, &auctionID, reject(KindPrecondition, alreadyFinishedReason(auction.Status)))
	}
	return nil
}

func (g *PermissionGuard) checkRoleTarget(ctx context.Context, actor auth.Actor, actionType string, userID uuid.UUID) error {
	if actionType == models.ActionRemoveAdmin && userID == actor.UserID {
		return g.deny(ctx, actor, actionType, &userID, reject(KindPrecondition, ReasonSelfDemote))
	}

	user, err := g.store.GetUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return g.deny(ctx, actor, actionType, &userID, reject(KindNotFound, ReasonUserNotFound))
	}
	if err != nil {
		return persistenceFault("get user", err)
	}

	if actionType == models.ActionAssignAdmin && user.IsAdmin() {
		return g.deny(ctx, actor, actionType, &userID, reject(KindPrecondition, ReasonAlreadyAdmin))
	}
	if actionType == models.ActionRemoveAdmin && !user.IsAdmin() {
		return g.deny(ctx, actor, actionType, &userID, reject(KindPrecondition, ReasonNotAdmin))
	}
	return nil
}

// deny records the refused attempt and returns rej. A failure to write the
// security event is logged but does not change the refusal.
func (g *PermissionGuard) deny(ctx context.Context, actor auth.Actor, actionType string, targetID *uuid.UUID, rej *Rejection) error {
	event := &models.SecurityEvent{
		ActionType: actionType,
		TargetID:   targetID,
		Reason:     rej.Reason,
		CreatedAt:  g.store.Now(),
	}
	if !actor.IsZero() {
		id := actor.UserID
		event.ActorID = &id
	}

	fields := []zap.Field{
		zap.String("action_type", actionType),
		zap.String("actor_id", actor.UserID.String()),
		zap.String("reason", rej.Reason),
	}
	if targetID != nil {
		fields = append(fields, zap.String("target_id", targetID.String()))
	}
	g.log.Warn("privileged action refused", fields...)
	metrics.SecurityEventsTotal.WithLabelValues(actionType).Inc()

	if err := g.store.CreateSecurityEvent(ctx, event); err != nil {
		g.log.Error("failed to record security event", zap.Error(err))
	}
	return rej
}
