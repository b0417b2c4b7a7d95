package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/models"
)

type banKey struct {
	auctionID uuid.UUID
	userID    uuid.UUID
}

type memState struct {
	users    map[uuid.UUID]models.User
	auctions map[uuid.UUID]models.Auction
	bids     map[uuid.UUID]models.Bid
	bans     map[banKey]uuid.UUID
	actions  []models.AdminAction
	security []models.SecurityEvent
}

func newMemState() *memState {
	return &memState{
		users:    make(map[uuid.UUID]models.User),
		auctions: make(map[uuid.UUID]models.Auction),
		bids:     make(map[uuid.UUID]models.Bid),
		bans:     make(map[banKey]uuid.UUID),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:    make(map[uuid.UUID]models.User, len(s.users)),
		auctions: make(map[uuid.UUID]models.Auction, len(s.auctions)),
		bids:     make(map[uuid.UUID]models.Bid, len(s.bids)),
		bans:     make(map[banKey]uuid.UUID, len(s.bans)),
		actions:  append([]models.AdminAction(nil), s.actions...),
		security: append([]models.SecurityEvent(nil), s.security...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.auctions {
		c.auctions[k] = v
	}
	for k, v := range s.bids {
		c.bids[k] = v
	}
	for k, v := range s.bans {
		c.bans[k] = v
	}
	return c
}

// MemoryStore is an in-process Store. A transaction holds the store mutex
// for its whole duration and works on a cloned state that replaces the live
// one on commit, so transactions are fully serialized and roll back cleanly.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	clock Clock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), clock: systemClock}
}

func (s *MemoryStore) WithClock(c Clock) *MemoryStore {
	s.clock = c
	return s
}

func (s *MemoryStore) Now() time.Time {
	return s.clock()
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(&memTx{st: staged, clock: s.clock}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *MemoryStore) direct(fn func(tx *memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{st: s.state, clock: s.clock})
}

type memTx struct {
	st    *memState
	clock Clock
}

func (t *memTx) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) CreateUser(_ context.Context, u *models.User) error {
	for _, existing := range t.st.users {
		if existing.Username == u.Username {
			return ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = t.clock()
	}
	t.st.users[u.ID] = *u
	return nil
}

func (t *memTx) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range t.st.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) UpdateUserRole(_ context.Context, id uuid.UUID, role string) error {
	u, ok := t.st.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	t.st.users[id] = u
	return nil
}

func (t *memTx) CreateAuction(_ context.Context, a *models.Auction) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = t.clock()
	}
	a.CurrentBid = a.StartingBid
	a.UpdatedAt = a.CreatedAt
	t.st.auctions[a.ID] = *a
	return nil
}

func (t *memTx) GetAuction(_ context.Context, id uuid.UUID) (*models.Auction, error) {
	a, ok := t.st.auctions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (t *memTx) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return t.GetUser(ctx, id)
}

func (t *memTx) LockAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return t.GetAuction(ctx, id)
}

func (t *memTx) ListAuctions(_ context.Context, f AuctionFilter) ([]models.Auction, error) {
	var matched []models.Auction
	for _, a := range t.st.auctions {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.OwnerID != nil && a.OwnerID != *f.OwnerID {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].EndTime.Equal(matched[j].EndTime) {
			return matched[i].EndTime.Before(matched[j].EndTime)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (t *memTx) UpdateAuctionAggregate(_ context.Context, id uuid.UUID, currentBid models.Money, highestBidderID *uuid.UUID) error {
	a, ok := t.st.auctions[id]
	if !ok {
		return ErrNotFound
	}
	a.CurrentBid = currentBid
	a.HighestBidderID = copyID(highestBidderID)
	a.UpdatedAt = t.clock()
	t.st.auctions[id] = a
	return nil
}

func (t *memTx) FinishAuction(_ context.Context, id uuid.UUID, status string, endedAt time.Time, endedBy *uuid.UUID) error {
	a, ok := t.st.auctions[id]
	if !ok || a.Status != models.AuctionStatusActive {
		return ErrNotActive
	}
	a.Status = status
	a.EndedAt = &endedAt
	a.EndedBy = copyID(endedBy)
	a.UpdatedAt = t.clock()
	t.st.auctions[id] = a
	return nil
}

func (t *memTx) ListExpiredAuctionIDs(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 500
	}
	var expired []models.Auction
	for _, a := range t.st.auctions {
		if a.Status == models.AuctionStatusActive && a.HasExpired(now) {
			expired = append(expired, a)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if !expired[i].EndTime.Equal(expired[j].EndTime) {
			return expired[i].EndTime.Before(expired[j].EndTime)
		}
		return expired[i].ID.String() < expired[j].ID.String()
	})

	var ids []uuid.UUID
	for _, a := range expired {
		if len(ids) == limit {
			break
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (t *memTx) CreateBid(_ context.Context, b *models.Bid) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = t.clock()
	}
	t.st.bids[b.ID] = *b
	return nil
}

func (t *memTx) GetBid(_ context.Context, id uuid.UUID) (*models.Bid, error) {
	b, ok := t.st.bids[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memTx) LockBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return t.GetBid(ctx, id)
}

func (t *memTx) StopBid(_ context.Context, id uuid.UUID, stoppedAt time.Time, stoppedBy uuid.UUID) error {
	b, ok := t.st.bids[id]
	if !ok || b.Status != models.BidStatusActive {
		return ErrNotActive
	}
	b.Status = models.BidStatusStopped
	b.StoppedAt = &stoppedAt
	b.StoppedBy = &stoppedBy
	t.st.bids[id] = b
	return nil
}

func (t *memTx) ListBids(_ context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	for _, b := range t.st.bids {
		if b.AuctionID == auctionID {
			bids = append(bids, b)
		}
	}
	sort.Slice(bids, func(i, j int) bool {
		return bids[i].Outranks(&bids[j])
	})
	return bids, nil
}

func (t *memTx) HighestActiveBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	bids, _ := t.ListBids(ctx, auctionID)
	best := models.HighestActive(bids)
	if best == nil {
		return nil, nil
	}
	b := *best
	return &b, nil
}

func (t *memTx) ListActiveBidderIDs(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error) {
	var active []models.Bid
	for _, b := range t.st.bids {
		if b.AuctionID == auctionID && b.IsActive() {
			active = append(active, b)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, b := range active {
		if !seen[b.BidderID] {
			seen[b.BidderID] = true
			ids = append(ids, b.BidderID)
		}
	}
	return ids, nil
}

func (t *memTx) IsBidderBarred(_ context.Context, auctionID, userID uuid.UUID) (bool, error) {
	_, ok := t.st.bans[banKey{auctionID, userID}]
	return ok, nil
}

func (t *memTx) BarBidder(_ context.Context, auctionID, userID, bidID uuid.UUID) error {
	key := banKey{auctionID, userID}
	if _, ok := t.st.bans[key]; !ok {
		t.st.bans[key] = bidID
	}
	return nil
}

func (t *memTx) CreateAdminAction(_ context.Context, a *models.AdminAction) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = t.clock()
	}
	t.st.actions = append(t.st.actions, *a)
	return nil
}

func (t *memTx) ListAdminActions(_ context.Context, f AdminActionFilter) ([]models.AdminAction, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var out []models.AdminAction
	skipped := 0
	for i := len(t.st.actions) - 1; i >= 0 && len(out) < limit; i-- {
		a := t.st.actions[i]
		if f.AdminID != nil && a.AdminID != *f.AdminID {
			continue
		}
		if f.ActionType != nil && a.ActionType != *f.ActionType {
			continue
		}
		if f.TargetID != nil && (a.TargetID == nil || *a.TargetID != *f.TargetID) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (t *memTx) CreateSecurityEvent(_ context.Context, e *models.SecurityEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.clock()
	}
	t.st.security = append(t.st.security, *e)
	return nil
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Standalone operations, each atomic on the live state.

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (u *models.User, err error) {
	err = s.direct(func(tx *memTx) error { u, err = tx.GetUser(ctx, id); return err })
	return u, err
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	return s.direct(func(tx *memTx) error { return tx.CreateUser(ctx, u) })
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (u *models.User, err error) {
	err = s.direct(func(tx *memTx) error { u, err = tx.GetUserByUsername(ctx, username); return err })
	return u, err
}

func (s *MemoryStore) UpdateUserRole(ctx context.Context, id uuid.UUID, role string) error {
	return s.direct(func(tx *memTx) error { return tx.UpdateUserRole(ctx, id, role) })
}

func (s *MemoryStore) CreateAuction(ctx context.Context, a *models.Auction) error {
	return s.direct(func(tx *memTx) error { return tx.CreateAuction(ctx, a) })
}

func (s *MemoryStore) GetAuction(ctx context.Context, id uuid.UUID) (a *models.Auction, err error) {
	err = s.direct(func(tx *memTx) error { a, err = tx.GetAuction(ctx, id); return err })
	return a, err
}

func (s *MemoryStore) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.GetUser(ctx, id)
}

func (s *MemoryStore) LockAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return s.GetAuction(ctx, id)
}

func (s *MemoryStore) ListAuctions(ctx context.Context, f AuctionFilter) (auctions []models.Auction, err error) {
	err = s.direct(func(tx *memTx) error { auctions, err = tx.ListAuctions(ctx, f); return err })
	return auctions, err
}

func (s *MemoryStore) UpdateAuctionAggregate(ctx context.Context, id uuid.UUID, currentBid models.Money, highestBidderID *uuid.UUID) error {
	return s.direct(func(tx *memTx) error { return tx.UpdateAuctionAggregate(ctx, id, currentBid, highestBidderID) })
}

func (s *MemoryStore) FinishAuction(ctx context.Context, id uuid.UUID, status string, endedAt time.Time, endedBy *uuid.UUID) error {
	return s.direct(func(tx *memTx) error { return tx.FinishAuction(ctx, id, status, endedAt, endedBy) })
}

func (s *MemoryStore) ListExpiredAuctionIDs(ctx context.Context, now time.Time, limit int) (ids []uuid.UUID, err error) {
	err = s.direct(func(tx *memTx) error { ids, err = tx.ListExpiredAuctionIDs(ctx, now, limit); return err })
	return ids, err
}

func (s *MemoryStore) CreateBid(ctx context.Context, b *models.Bid) error {
	return s.direct(func(tx *memTx) error { return tx.CreateBid(ctx, b) })
}

func (s *MemoryStore) GetBid(ctx context.Context, id uuid.UUID) (b *models.Bid, err error) {
	err = s.direct(func(tx *memTx) error { b, err = tx.GetBid(ctx, id); return err })
	return b, err
}

func (s *MemoryStore) LockBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return s.GetBid(ctx, id)
}

func (s *MemoryStore) StopBid(ctx context.Context, id uuid.UUID, stoppedAt time.Time, stoppedBy uuid.UUID) error {
	return s.direct(func(tx *memTx) error { return tx.StopBid(ctx, id, stoppedAt, stoppedBy) })
}

func (s *MemoryStore) ListBids(ctx context.Context, auctionID uuid.UUID) (bids []models.Bid, err error) {
	err = s.direct(func(tx *memTx) error { bids, err = tx.ListBids(ctx, auctionID); return err })
	return bids, err
}

func (s *MemoryStore) HighestActiveBid(ctx context.Context, auctionID uuid.UUID) (b *models.Bid, err error) {
	err = s.direct(func(tx *memTx) error { b, err = tx.HighestActiveBid(ctx, auctionID); return err })
	return b, err
}

func (s *MemoryStore) ListActiveBidderIDs(ctx context.Context, auctionID uuid.UUID) (ids []uuid.UUID, err error) {
	err = s.direct(func(tx *memTx) error { ids, err = tx.ListActiveBidderIDs(ctx, auctionID); return err })
	return ids, err
}

func (s *MemoryStore) IsBidderBarred(ctx context.Context, auctionID, userID uuid.UUID) (barred bool, err error) {
	err = s.direct(func(tx *memTx) error { barred, err = tx.IsBidderBarred(ctx, auctionID, userID); return err })
	return barred, err
}

func (s *MemoryStore) BarBidder(ctx context.Context, auctionID, userID, bidID uuid.UUID) error {
	return s.direct(func(tx *memTx) error { return tx.BarBidder(ctx, auctionID, userID, bidID) })
}

func (s *MemoryStore) CreateAdminAction(ctx context.Context, a *models.AdminAction) error {
	return s.direct(func(tx *memTx) error { return tx.CreateAdminAction(ctx, a) })
}

func (s *MemoryStore) ListAdminActions(ctx context.Context, f AdminActionFilter) (actions []models.AdminAction, err error) {
	err = s.direct(func(tx *memTx) error { actions, err = tx.ListAdminActions(ctx, f); return err })
	return actions, err
}

func (s *MemoryStore) CreateSecurityEvent(ctx context.Context, e *models.SecurityEvent) error {
	return s.direct(func(tx *memTx) error { return tx.CreateSecurityEvent(ctx, e) })
}

// SecurityEvents returns a copy of the recorded security events.
func (s *MemoryStore) SecurityEvents() []models.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SecurityEvent(nil), s.state.security...)
}
