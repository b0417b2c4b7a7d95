package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestAuction(t *testing.T, s *MemoryStore, starting models.Money) *models.Auction {
	t.Helper()
	a := &models.Auction{
		OwnerID:     uuid.New(),
		Title:       "lamp",
		StartingBid: starting,
		EndTime:     s.Now().Add(time.Hour),
		Status:      models.AuctionStatusActive,
	}
	require.NoError(t, s.CreateAuction(context.Background(), a))
	return a
}

func TestMemoryStore_InTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := newTestAuction(t, s, 1000)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.CreateBid(ctx, &models.Bid{AuctionID: a.ID, BidderID: uuid.New(), Amount: 1500, Status: models.BidStatusActive}))
		require.NoError(t, tx.UpdateAuctionAggregate(ctx, a.ID, 1500, nil))
		return boom
	})
	require.ErrorIs(t, err, boom)

	bids, err := s.ListBids(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, bids)

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.Money(1000), got.CurrentBid)
}

func TestMemoryStore_InTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := newTestAuction(t, s, 1000)
	bidder := uuid.New()

	require.NoError(t, s.InTx(ctx, func(tx Tx) error {
		if err := tx.CreateBid(ctx, &models.Bid{AuctionID: a.ID, BidderID: bidder, Amount: 1200, Status: models.BidStatusActive}); err != nil {
			return err
		}
		return tx.UpdateAuctionAggregate(ctx, a.ID, 1200, &bidder)
	}))

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.Money(1200), got.CurrentBid)
	require.Equal(t, bidder, *got.HighestBidderID)
}

func TestMemoryStore_HighestActiveBid(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore().WithClock(func() time.Time { return now })
	a := newTestAuction(t, s, 100)

	first := &models.Bid{AuctionID: a.ID, BidderID: uuid.New(), Amount: 500, Status: models.BidStatusActive, CreatedAt: now}
	second := &models.Bid{AuctionID: a.ID, BidderID: uuid.New(), Amount: 500, Status: models.BidStatusActive, CreatedAt: now.Add(time.Second)}
	top := &models.Bid{AuctionID: a.ID, BidderID: uuid.New(), Amount: 900, Status: models.BidStatusActive, CreatedAt: now}
	for _, b := range []*models.Bid{second, first, top} {
		require.NoError(t, s.CreateBid(ctx, b))
	}

	best, err := s.HighestActiveBid(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, top.ID, best.ID)

	require.NoError(t, s.StopBid(ctx, top.ID, now, uuid.New()))
	best, err = s.HighestActiveBid(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, best.ID, "equal amounts resolve to the earliest bid")

	require.ErrorIs(t, s.StopBid(ctx, top.ID, now, uuid.New()), ErrNotActive)

	bidders, err := s.ListActiveBidderIDs(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, bidders, 2)
}

func TestMemoryStore_FinishAuctionOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := newTestAuction(t, s, 100)

	require.NoError(t, s.FinishAuction(ctx, a.ID, models.AuctionStatusEnded, s.Now(), nil))
	require.ErrorIs(t, s.FinishAuction(ctx, a.ID, models.AuctionStatusCancelled, s.Now(), nil), ErrNotActive)

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.AuctionStatusEnded, got.Status)
	require.Nil(t, got.EndedBy)
}

func TestMemoryStore_ListExpiredAuctionIDs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore().WithClock(func() time.Time { return now })

	expired := &models.Auction{OwnerID: uuid.New(), StartingBid: 1, EndTime: now.Add(-time.Minute), Status: models.AuctionStatusActive}
	future := &models.Auction{OwnerID: uuid.New(), StartingBid: 1, EndTime: now.Add(time.Minute), Status: models.AuctionStatusActive}
	done := &models.Auction{OwnerID: uuid.New(), StartingBid: 1, EndTime: now.Add(-time.Hour), Status: models.AuctionStatusEnded}
	for _, a := range []*models.Auction{expired, future, done} {
		require.NoError(t, s.CreateAuction(ctx, a))
	}

	ids, err := s.ListExpiredAuctionIDs(ctx, now, 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{expired.ID}, ids)
}

func TestMemoryStore_ListAdminActionsFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	admin := uuid.New()
	target := uuid.New()

	require.NoError(t, s.CreateAdminAction(ctx, &models.AdminAction{AdminID: admin, ActionType: models.ActionStopBid, TargetID: &target}))
	require.NoError(t, s.CreateAdminAction(ctx, &models.AdminAction{AdminID: admin, ActionType: models.ActionEndAuction}))
	require.NoError(t, s.CreateAdminAction(ctx, &models.AdminAction{AdminID: uuid.New(), ActionType: models.ActionStopBid}))

	stop := models.ActionStopBid
	got, err := s.ListAdminActions(ctx, AdminActionFilter{AdminID: &admin, ActionType: &stop})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, target, *got[0].TargetID)

	all, err := s.ListAdminActions(ctx, AdminActionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, models.ActionStopBid, all[0].ActionType, "newest first")
}
