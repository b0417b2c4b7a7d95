package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samirnavas/who-gets-it/internal/models"
)

const auctionColumns = `id, owner_id, title, description, starting_bid, current_bid, highest_bidder_id,
	end_time, status, ended_at, ended_by, created_at, updated_at`

type AuctionRepo struct {
	q querier
}

func NewAuctionRepo(q querier) *AuctionRepo {
	return &AuctionRepo{q: q}
}

func scanAuction(row pgx.Row) (*models.Auction, error) {
	var a models.Auction
	err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Description, &a.StartingBid, &a.CurrentBid, &a.HighestBidderID,
		&a.EndTime, &a.Status, &a.EndedAt, &a.EndedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &a, nil
}

func (r *AuctionRepo) Create(ctx context.Context, a *models.Auction) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO auctions (owner_id, title, description, starting_bid, current_bid, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, $5, $6, $7, $7)
		RETURNING id
	`, a.OwnerID, a.Title, a.Description, int64(a.StartingBid), a.EndTime, a.Status, a.CreatedAt,
	).Scan(&a.ID)
}

func (r *AuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return scanAuction(r.q.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id))
}

func (r *AuctionRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	return scanAuction(r.q.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1 FOR UPDATE`, id))
}

func (r *AuctionRepo) List(ctx context.Context, f AuctionFilter) ([]models.Auction, error) {
	var where []string
	var args []any
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		where = append(where, fmt.Sprintf("owner_id = $%d", len(args)))
	}

	query := `SELECT ` + auctionColumns + ` FROM auctions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY end_time ASC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []models.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, *a)
	}
	return auctions, rows.Err()
}

func (r *AuctionRepo) UpdateAggregate(ctx context.Context, id uuid.UUID, currentBid models.Money, highestBidderID *uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE auctions SET current_bid = $1, highest_bidder_id = $2, updated_at = now() WHERE id = $3
	`, int64(currentBid), highestBidderID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AuctionRepo) Finish(ctx context.Context, id uuid.UUID, status string, endedAt time.Time, endedBy *uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE auctions SET status = $1, ended_at = $2, ended_by = $3, updated_at = now()
		WHERE id = $4 AND status = 'active'
	`, status, endedAt, endedBy, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotActive
	}
	return nil
}

func (r *AuctionRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.q.Query(ctx, `
		SELECT id FROM auctions
		WHERE status = 'active' AND end_time <= $1
		ORDER BY end_time ASC LIMIT $2
	`, now, limit)
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
