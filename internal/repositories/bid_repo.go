package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samirnavas/who-gets-it/internal/models"
)

const bidColumns = `id, auction_id, bidder_id, amount, status, created_at, stopped_at, stopped_by`

type BidRepo struct {
	q querier
}

func NewBidRepo(q querier) *BidRepo {
	return &BidRepo{q: q}
}

func scanBid(row pgx.Row) (*models.Bid, error) {
	var b models.Bid
	if err := row.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.Status, &b.CreatedAt, &b.StoppedAt, &b.StoppedBy); err != nil {
		return nil, mapNoRows(err)
	}
	return &b, nil
}

func (r *BidRepo) Create(ctx context.Context, b *models.Bid) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO bids (auction_id, bidder_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, b.AuctionID, b.BidderID, int64(b.Amount), b.Status, b.CreatedAt).Scan(&b.ID)
}

func (r *BidRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return scanBid(r.q.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id))
}

func (r *BidRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return scanBid(r.q.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1 FOR UPDATE`, id))
}

func (r *BidRepo) Stop(ctx context.Context, id uuid.UUID, stoppedAt time.Time, stoppedBy uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE bids SET status = 'stopped', stopped_at = $1, stopped_by = $2
		WHERE id = $3 AND status = 'active'
	`, stoppedAt, stoppedBy, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotActive
	}
	return nil
}

func (r *BidRepo) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+bidColumns+` FROM bids WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC, id ASC
	`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *b)
	}
	return bids, rows.Err()
}

func (r *BidRepo) HighestActive(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	b, err := scanBid(r.q.QueryRow(ctx, `
		SELECT `+bidColumns+` FROM bids
		WHERE auction_id = $1 AND status = 'active'
		ORDER BY amount DESC, created_at ASC, id ASC
		LIMIT 1
	`, auctionID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return b, err
}

func (r *BidRepo) ListActiveBidderIDs(ctx context.Context, auctionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.q.Query(ctx, `
		SELECT bidder_id FROM bids
		WHERE auction_id = $1 AND status = 'active'
		GROUP BY bidder_id
		ORDER BY MIN(created_at)
	`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *BidRepo) IsBarred(ctx context.Context, auctionID, userID uuid.UUID) (bool, error) {
	var barred bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM bid_bans WHERE auction_id = $1 AND user_id = $2)
	`, auctionID, userID).Scan(&barred)
	return barred, err
}

func (r *BidRepo) Bar(ctx context.Context, auctionID, userID, bidID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO bid_bans (auction_id, user_id, bid_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (auction_id, user_id) DO NOTHING
	`, auctionID, userID, bidID)
	return err
}
