package services

import (
	"context"
	"time"

	"github.com/samirnavas/who-gets-it/internal/events"
	"github.com/samirnavas/who-gets-it/internal/metrics"
	"go.uber.org/zap"
)

const notifyTimeout = 5 * time.Second

// Dispatcher hands notices to the Notifier after a transaction commits.
// Failures are logged and counted, never returned.
type Dispatcher struct {
	notifier events.Notifier
	log      *zap.Logger
}

func NewDispatcher(notifier events.Notifier, log *zap.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, log: log}
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, fn func(ctx context.Context, n events.Notifier) error) {
	if d == nil || d.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(kind).Inc()
			d.log.Error("notification dispatch panicked", zap.String("kind", kind), zap.Any("panic", r))
		}
	}()

	if err := fn(ctx, d.notifier); err != nil {
		metrics.NotificationFailuresTotal.WithLabelValues(kind).Inc()
		d.log.Warn("notification dispatch failed", zap.String("kind", kind), zap.Error(err))
	}
}
