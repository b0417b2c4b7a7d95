package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/events"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/samirnavas/who-gets-it/internal/repositories"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type outbidNotice struct {
	auctionID uuid.UUID
	userID    uuid.UUID
	amount    models.Money
}

type stoppedNotice struct {
	bid    models.Bid
	reason string
}

type recordingNotifier struct {
	mu      sync.Mutex
	err     error
	outbid  []outbidNotice
	stopped []stoppedNotice
	ended   []events.AuctionOutcome
	admin   []string
}

func (n *recordingNotifier) NotifyOutbid(_ context.Context, auctionID, userID uuid.UUID, amount models.Money) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outbid = append(n.outbid, outbidNotice{auctionID, userID, amount})
	return n.err
}

func (n *recordingNotifier) NotifyBidStopped(_ context.Context, bid models.Bid, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = append(n.stopped, stoppedNotice{bid, reason})
	return n.err
}

func (n *recordingNotifier) NotifyAuctionEnded(_ context.Context, o events.AuctionOutcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ended = append(n.ended, o)
	return n.err
}

func (n *recordingNotifier) NotifyAdminActionCompleted(_ context.Context, _ uuid.UUID, summary string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admin = append(n.admin, summary)
	return n.err
}

func (n *recordingNotifier) endedFor(auctionID uuid.UUID) []events.AuctionOutcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []events.AuctionOutcome
	for _, o := range n.ended {
		if o.AuctionID == auctionID {
			out = append(out, o)
		}
	}
	return out
}

type fixture struct {
	ctx        context.Context
	clock      *testClock
	store      *repositories.MemoryStore
	notifier   *recordingNotifier
	bids       *BidService
	auctions   *AuctionService
	moderation *ModerationService
	users      *UserService
}

type fixtureOptions struct {
	policy models.BidPolicy
	opts   AuctionOptions
}

func newFixture(t *testing.T, configure ...func(*fixtureOptions)) *fixture {
	t.Helper()
	fo := fixtureOptions{policy: models.DefaultBidPolicy()}
	for _, c := range configure {
		c(&fo)
	}

	log := zap.NewNop()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := repositories.NewMemoryStore().WithClock(clock.Now)
	notifier := &recordingNotifier{}
	dispatch := NewDispatcher(notifier, log)
	guard := NewPermissionGuard(store, log)

	bids := NewBidService(store, fo.policy, dispatch, log)
	auctions := NewAuctionService(store, bids, guard, dispatch, fo.opts, log)
	return &fixture{
		ctx:        context.Background(),
		clock:      clock,
		store:      store,
		notifier:   notifier,
		bids:       bids,
		auctions:   auctions,
		moderation: NewModerationService(store, bids, auctions, guard, dispatch, 50, log),
		users:      NewUserService(store, log),
	}
}

func (f *fixture) user(t *testing.T, name string) auth.Actor {
	t.Helper()
	u, err := f.users.Register(f.ctx, name, nil)
	require.NoError(t, err)
	return auth.ActorFromUser(u)
}

func (f *fixture) admin(t *testing.T, name string) auth.Actor {
	t.Helper()
	u, err := f.users.EnsureAdmin(f.ctx, name)
	require.NoError(t, err)
	return auth.ActorFromUser(u)
}

func (f *fixture) auction(t *testing.T, owner auth.Actor, starting models.Money, endIn time.Duration) *models.Auction {
	t.Helper()
	a, err := f.auctions.CreateAuction(f.ctx, owner, CreateAuctionInput{
		Title:       "item " + uuid.NewString()[:8],
		StartingBid: starting,
		EndTime:     f.clock.Now().Add(endIn),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) bid(t *testing.T, bidder auth.Actor, auctionID uuid.UUID, amount models.Money) *models.Bid {
	t.Helper()
	b, err := f.bids.PlaceBid(f.ctx, bidder, auctionID, amount)
	require.NoError(t, err)
	return b
}

func (f *fixture) reload(t *testing.T, auctionID uuid.UUID) *models.Auction {
	t.Helper()
	a, err := f.store.GetAuction(f.ctx, auctionID)
	require.NoError(t, err)
	return a
}

func (f *fixture) actions(t *testing.T, actionType string) []models.AdminAction {
	t.Helper()
	actions, err := f.store.ListAdminActions(f.ctx, repositories.AdminActionFilter{ActionType: &actionType, Limit: 100})
	require.NoError(t, err)
	return actions
}

func requireRejection(t *testing.T, err error, kind RejectionKind, reason string) {
	t.Helper()
	require.Error(t, err)
	var rej *Rejection
	require.True(t, errors.As(err, &rej), "expected *Rejection, got %T: %v", err, err)
	require.Equal(t, kind, rej.Kind, "reason: %s", rej.Reason)
	if reason != "" {
		require.Equal(t, reason, rej.Reason)
	}
}

func adminActionFilterAll() repositories.AdminActionFilter {
	return repositories.AdminActionFilter{Limit: 100}
}
