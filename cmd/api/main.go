package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/samirnavas/who-gets-it/internal/app"
	"github.com/samirnavas/who-gets-it/internal/config"
	apphttp "github.com/samirnavas/who-gets-it/internal/http"
	"github.com/samirnavas/who-gets-it/internal/http/dto"
	"github.com/samirnavas/who-gets-it/internal/http/handlers"
	"github.com/samirnavas/who-gets-it/internal/middleware"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialise", zap.Error(err))
	}
	defer a.Close()

	// Fiber app
	server := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: middleware.GetRequestID(c)})
		},
	})

	apphttp.SetupRouter(server, cfg, log, a.Redis, a.Users, apphttp.Handlers{
		Auth:    handlers.NewAuthHandler(a.Users, cfg, log),
		User:    handlers.NewUserHandler(a.Users, log),
		Auction: handlers.NewAuctionHandler(a.Auctions, a.Bids, log),
		Admin:   handlers.NewAdminHandler(a.Moderation, a.Auctions, log),
		Meta:    handlers.NewMetaHandler(cfg.BidPolicy()),
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = server.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.String("storage", cfg.StorageDriver))
	if err := server.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
