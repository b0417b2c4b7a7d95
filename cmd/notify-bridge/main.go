package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samirnavas/who-gets-it/internal/config"
	"github.com/samirnavas/who-gets-it/internal/db"
	"github.com/samirnavas/who-gets-it/internal/events"
	"go.uber.org/zap"
)

// notify-bridge subscribes to notification events in Redis and forwards
// each one to NOTIFY_WEBHOOK_URL.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if cfg.RedisURL == "" || cfg.NotifyWebhookURL == "" {
		log.Fatal("REDIS_URL and NOTIFY_WEBHOOK_URL are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	client := &http.Client{Timeout: 10 * time.Second}

	err = subscriber.Subscribe(ctx, events.StreamNotifications, func(event events.Event) {
		forward(ctx, client, cfg.NotifyWebhookURL, event, log)
	})
	if err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	log.Info("notify-bridge started", zap.String("stream", events.StreamNotifications))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}

func forward(ctx context.Context, client *http.Client, url string, event events.Event, log *zap.Logger) {
	if _, ok := event.Payload["user_id"]; !ok {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Warn("failed to encode notification", zap.String("type", event.Type), zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Warn("failed to build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("failed to forward notification", zap.String("type", event.Type), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Warn("webhook returned non-2xx", zap.String("type", event.Type), zap.Int("status", resp.StatusCode))
	}
}
