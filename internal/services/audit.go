package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/metrics"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/samirnavas/who-gets-it/internal/repositories"
)

// recordAction appends the audit row for a privileged mutation. It must be
// called with the Tx that performs the mutation.
func recordAction(ctx context.Context, tx repositories.Tx, now time.Time, adminID uuid.UUID, actionType string, targetID *uuid.UUID, reason string, extra map[string]any) (*models.AdminAction, error) {
	action := &models.AdminAction{
		AdminID:    adminID,
		ActionType: actionType,
		TargetID:   targetID,
		Context:    extra,
		CreatedAt:  now,
	}
	if r := strings.TrimSpace(reason); r != "" {
		action.Reason = &r
	}
	if err := tx.CreateAdminAction(ctx, action); err != nil {
		return nil, err
	}
	return action, nil
}

// countActions is called after commit so rolled back actions are not counted.
func countActions(actionTypes ...string) {
	for _, t := range actionTypes {
		metrics.AdminActionsTotal.WithLabelValues(t).Inc()
	}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
