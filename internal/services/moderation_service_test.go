package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/samirnavas/who-gets-it/internal/repositories"
	"github.com/stretchr/testify/require"
)

func TestStopBid_ResetsLeaderAndBarsBidder(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin")
	buyer := f.user(t, "buyer")
	a := f.auction(t, f.user(t, "seller"), 1000, time.Hour)
	bid := f.bid(t, buyer, a.ID, 1500)

	stopped, err := f.moderation.StopBid(f.ctx, admin, bid.ID, "suspicious")
	require.NoError(t, err)
	require.Equal(t, models.BidStatusStopped, stopped.Status)
	require.NotNil(t, stopped.StoppedAt)
	require.Equal(t, admin.UserID, *stopped.StoppedBy)

	got := f.reload(t, a.ID)
	require.Equal(t, models.Money(1000), got.CurrentBid)
	require.Nil(t, got.HighestBidderID)

	require.Len(t, f.notifier.stopped, 1)
	require.Equal(t, buyer.UserID, f.notifier.stopped[0].bid.BidderID)
	require.Equal(t, "suspicious", f.notifier.stopped[0].reason)

	_, err = f.bids.PlaceBid(f.ctx, buyer, a.ID, 9000)
	requireRejection(t, err, KindPrecondition, ReasonBidderBarred)

	actions := f.actions(t, models.ActionStopBid)
	require.Len(t, actions, 1)
	require.Equal(t, bid.ID, *actions[0].TargetID)
	require.Equal(t, admin.UserID, actions[0].AdminID)
	require.Equal(t, true, actions[0].Context["was_leader"])
}

func TestStopBid_NextHighestTakesTheLead(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin")
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	a := f.auction(t, f.user(t, "seller"), 1000, time.Hour)
	f.bid(t, alice, a.ID, 1200)
	lead := f.bid(t, bob, a.ID, 1800)

	_, err := f.moderation.StopBid(f.ctx, admin, lead.ID, "")
	require.NoError(t, err)

	got := f.reload(t, a.ID)
	require.Equal(t, models.Money(1200), got.CurrentBid)
	require.Equal(t, alice.UserID, *got.HighestBidderID)

	highest, err := f.bids.ComputeHighestActiveBid(f.ctx, a.ID)
	require.NoError(t, err)
	require.NotEqual(t, lead.ID, highest.ID)

	// the minimum follows the new leader
	f.bid(t, f.user(t, "carol"), a.ID, 1201)
}

func TestStopBid_Rejections(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin")
	buyer := f.user(t, "buyer")
	a := f.auction(t, f.user(t, "seller"), 1000, time.Hour)
	bid := f.bid(t, buyer, a.ID, 1500)

	_, err := f.moderation.StopBid(f.ctx, buyer, bid.ID, "")
	requireRejection(t, err, KindPermission, ReasonAdminRequired)

	_, err = f.moderation.StopBid(f.ctx, admin, uuid.New(), "")
	requireRejection(t, err, KindNotFound, ReasonBidNotFound)

	_, err = f.moderation.StopBid(f.ctx, admin, bid.ID, "")
	require.NoError(t, err)
	_, err = f.moderation.StopBid(f.ctx, admin, bid.ID, "")
	requireRejection(t, err, KindPrecondition, ReasonBidAlreadyStopped)

	require.Len(t, f.store.SecurityEvents(), 3)
	require.Len(t, f.actions(t, models.ActionStopBid), 1)
}

func TestStopBid_RejectedOnFinishedAuction(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin")
	a := f.auction(t, f.user(t, "seller"), 1000, time.Hour)
	bid := f.bid(t, f.user(t, "buyer"), a.ID, 1500)
	_, err := f.auctions.EndAuction(f.ctx, admin, a.ID, "")
	require.NoError(t, err)

	_, err = f.moderation.StopBid(f.ctx, admin, bid.ID, "")
	requireRejection(t, err, KindPrecondition, ReasonAuctionNotActive)
	require.Equal(t, models.Money(1500), f.reload(t, a.ID).CurrentBid)
}

func TestStopBid_NotificationFailureDoesNotFailStop(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("bus down")
	admin := f.admin(t, "admin")
	a := f.auction(t, f.user(t, "seller"), 1000, time.Hour)
	bid := f.bid(t, f.user(t, "buyer"), a.ID, 1500)

	_, err := f.moderation.StopBid(f.ctx, admin, bid.ID, "")
	require.NoError(t, err)
	require.Len(t, f.actions(t, models.ActionStopBid), 1)
}

func TestStopBid_ConcurrentWithBidKeepsAggregateConsistent(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		admin := f.admin(t, "admin")
		a := f.auction(t, f.user(t, "seller"), 1000, time.Hour)
		lead := f.bid(t, f.user(t, "leader"), a.ID, 1500)
		challenger := f.user(t, "challenger")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.moderation.StopBid(f.ctx, admin, lead.ID, "")
		}()
		go func() {
			defer wg.Done()
			_, _ = f.bids.PlaceBid(f.ctx, challenger, a.ID, 1001+models.Money(i))
		}()
		wg.Wait()

		got := f.reload(t, a.ID)
		highest, err := f.bids.ComputeHighestActiveBid(f.ctx, a.ID)
		require.NoError(t, err)
		if highest == nil {
			require.Equal(t, got.StartingBid, got.CurrentBid)
			require.Nil(t, got.HighestBidderID)
		} else {
			require.Equal(t, highest.Amount, got.CurrentBid)
			require.Equal(t, highest.BidderID, *got.HighestBidderID)
		}
	}
}

func TestBulkStopBids(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin")
	a := f.auction(t, f.user(t, "seller"), 1000, time.Hour)
	b1 := f.bid(t, f.user(t, "b1"), a.ID, 1100)
	b2 := f.bid(t, f.user(t, "b2"), a.ID, 1200)
	missing := uuid.New()

	results, err := f.moderation.BulkStopBids(f.ctx, admin, []uuid.UUID{b1.ID, missing, b2.ID, b1.ID}, "spam ring")
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.True(t, results[b1.ID].Stopped)
	require.True(t, results[b2.ID].Stopped)
	require.False(t, results[missing].Stopped)
	require.Equal(t, ReasonBidNotFound, results[missing].Reason)

	require.Len(t, f.actions(t, models.ActionStopBid), 2)
	summary := f.actions(t, models.ActionBulkStopBids)
	require.Len(t, summary, 1)
	require.Nil(t, summary[0].TargetID)
	require.Equal(t, 2, summary[0].Context["success_count"])
	require.Equal(t, []string{b1.ID.String(), missing.String(), b2.ID.String()}, summary[0].Context["bid_ids"])

	got := f.reload(t, a.ID)
	require.Equal(t, models.Money(1000), got.CurrentBid)
	require.Len(t, f.notifier.stopped, 2)
}

func TestBulkStopBids_Limits(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin")

	_, err := f.moderation.BulkStopBids(f.ctx, admin, nil, "")
	requireRejection(t, err, KindValidation, "between 1 and 50 bid ids are required")

	tooMany := make([]uuid.UUID, 51)
	for i := range tooMany {
		tooMany[i] = uuid.New()
	}
	_, err = f.moderation.BulkStopBids(f.ctx, admin, tooMany, "")
	requireRejection(t, err, KindValidation, "")

	repeated := make([]uuid.UUID, 51)
	one := uuid.New()
	for i := range repeated {
		repeated[i] = one
	}
	_, err = f.moderation.BulkStopBids(f.ctx, admin, repeated, "")
	requireRejection(t, err, KindValidation, "between 1 and 50 bid ids are required")
	require.Empty(t, f.actions(t, models.ActionBulkStopBids))

	_, err = f.moderation.BulkStopBids(f.ctx, f.user(t, "user"), []uuid.UUID{uuid.New()}, "")
	requireRejection(t, err, KindPermission, ReasonAdminRequired)
}

func TestAssignAndRemoveAdmin(t *testing.T) {
	f := newFixture(t)
	root := f.admin(t, "root")
	user := f.user(t, "helper")

	promoted, err := f.moderation.AssignAdmin(f.ctx, root, user.UserID, "on call")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, promoted.Role)

	_, err = f.moderation.AssignAdmin(f.ctx, root, user.UserID, "")
	requireRejection(t, err, KindPrecondition, ReasonAlreadyAdmin)

	_, err = f.moderation.RemoveAdmin(f.ctx, root, root.UserID, "")
	requireRejection(t, err, KindPrecondition, ReasonSelfDemote)

	helper := auth.Actor{UserID: user.UserID, Role: models.RoleAdmin}
	demoted, err := f.moderation.RemoveAdmin(f.ctx, helper, root.UserID, "rotation")
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, demoted.Role)

	assign := f.actions(t, models.ActionAssignAdmin)
	require.Len(t, assign, 1)
	require.Equal(t, user.UserID, *assign[0].TargetID)
	remove := f.actions(t, models.ActionRemoveAdmin)
	require.Len(t, remove, 1)
	require.Equal(t, helper.UserID, remove[0].AdminID)
	require.Equal(t, models.RoleAdmin, remove[0].Context["old_role"])
}

func TestAssignAdmin_ConcurrentCallsRecordOneChange(t *testing.T) {
	f := newFixture(t)
	root := f.admin(t, "root")
	user := f.user(t, "helper")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.moderation.AssignAdmin(f.ctx, root, user.UserID, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.Equal(t, ReasonAlreadyAdmin, ReasonOf(err))
	}
	require.Equal(t, 1, succeeded)
	require.Len(t, f.actions(t, models.ActionAssignAdmin), 1)
}

func TestEndExpiredAuctions_RecordsOneSummary(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin")
	seller := f.user(t, "seller")
	a1 := f.auction(t, seller, 100, time.Minute)
	a2 := f.auction(t, seller, 100, time.Minute)
	f.clock.Advance(time.Hour)

	_, err := f.moderation.EndExpiredAuctions(f.ctx, seller)
	requireRejection(t, err, KindPermission, ReasonAdminRequired)

	ended, err := f.moderation.EndExpiredAuctions(f.ctx, admin)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{a1.ID, a2.ID}, ended)

	summary := f.actions(t, models.ActionAutoEndExpired)
	require.Len(t, summary, 1)
	require.Equal(t, 2, summary[0].Context["count"])
	require.Nil(t, f.reload(t, a1.ID).EndedBy)
}

func TestValidatePermissions(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin")
	user := f.user(t, "user")
	a := f.auction(t, user, 100, time.Hour)

	require.NoError(t, f.moderation.ValidatePermissions(f.ctx, admin, models.ActionEndAuction, &a.ID))

	err := f.moderation.ValidatePermissions(f.ctx, admin, "launch_rockets", &a.ID)
	requireRejection(t, err, KindValidation, ReasonUnknownAction)
	require.Empty(t, f.store.SecurityEvents(), "validation errors are not security events")

	err = f.moderation.ValidatePermissions(f.ctx, user, models.ActionCancelAuction, &a.ID)
	requireRejection(t, err, KindPermission, ReasonAdminRequired)

	err = f.moderation.ValidatePermissions(f.ctx, auth.Actor{}, models.ActionStopBid, &a.ID)
	requireRejection(t, err, KindPermission, ReasonAdminRequired)

	events := f.store.SecurityEvents()
	require.Len(t, events, 2)
	require.Nil(t, events[1].ActorID)
}

func TestListAdminActions(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "admin")
	user := f.user(t, "user")
	a := f.auction(t, user, 100, time.Hour)
	_, err := f.auctions.EndAuction(f.ctx, admin, a.ID, "")
	require.NoError(t, err)

	_, err = f.moderation.ListAdminActions(f.ctx, user, repositories.AdminActionFilter{})
	requireRejection(t, err, KindPermission, ReasonAdminRequired)

	actions, err := f.moderation.ListAdminActions(f.ctx, admin, repositories.AdminActionFilter{TargetID: &a.ID})
	require.NoError(t, err)
	require.Len(t, actions, 1)

	bad := "nope"
	_, err = f.moderation.ListAdminActions(f.ctx, admin, repositories.AdminActionFilter{ActionType: &bad})
	requireRejection(t, err, KindValidation, ReasonUnknownAction)
}
