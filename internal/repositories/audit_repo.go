package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samirnavas/who-gets-it/internal/models"
)

type AuditRepo struct {
	q querier
}

func NewAuditRepo(q querier) *AuditRepo {
	return &AuditRepo{q: q}
}

func (r *AuditRepo) Log(ctx context.Context, a *models.AdminAction) error {
	var ctxBytes []byte
	if a.Context != nil {
		var err error
		if ctxBytes, err = json.Marshal(a.Context); err != nil {
			return fmt.Errorf("marshal admin action context: %w", err)
		}
	}
	return r.q.QueryRow(ctx, `
		INSERT INTO admin_actions (admin_id, action_type, target_id, reason, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, a.AdminID, a.ActionType, a.TargetID, a.Reason, ctxBytes, a.CreatedAt).Scan(&a.ID)
}

func (r *AuditRepo) List(ctx context.Context, f AdminActionFilter) ([]models.AdminAction, error) {
	query := `SELECT id, admin_id, action_type, target_id, reason, context, created_at FROM admin_actions`
	args := []any{}
	where := []string{}

	if f.AdminID != nil {
		args = append(args, *f.AdminID)
		where = append(where, fmt.Sprintf("admin_id = $%d", len(args)))
	}
	if f.ActionType != nil {
		args = append(args, *f.ActionType)
		where = append(where, fmt.Sprintf("action_type = $%d", len(args)))
	}
	if f.TargetID != nil {
		args = append(args, *f.TargetID)
		where = append(where, fmt.Sprintf("target_id = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []models.AdminAction
	for rows.Next() {
		var a models.AdminAction
		var ctxBytes []byte
		if err := rows.Scan(&a.ID, &a.AdminID, &a.ActionType, &a.TargetID, &a.Reason, &ctxBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		if len(ctxBytes) > 0 {
			_ = json.Unmarshal(ctxBytes, &a.Context)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (r *AuditRepo) LogSecurityEvent(ctx context.Context, e *models.SecurityEvent) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO security_events (actor_id, action_type, target_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, e.ActorID, e.ActionType, e.TargetID, e.Reason, e.CreatedAt).Scan(&e.ID)
}
