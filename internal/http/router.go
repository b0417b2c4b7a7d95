package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/samirnavas/who-gets-it/internal/config"
	"github.com/samirnavas/who-gets-it/internal/http/handlers"
	"github.com/samirnavas/who-gets-it/internal/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Auction *handlers.AuctionHandler
	Admin   *handlers.AdminHandler
	Meta    *handlers.MetaHandler
}

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	resolver middleware.ActorResolver,
	h Handlers,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/register", h.Auth.Register)
	api.Post("/auth/token", h.Auth.Token)

	// Meta (public)
	api.Get("/meta/bid-policy", h.Meta.GetBidPolicy)
	api.Get("/meta/auction-statuses", h.Meta.GetAuctionStatuses)

	// Auctions (public reads)
	api.Get("/auctions", h.Auction.ListAuctions)
	api.Get("/auctions/:id", h.Auction.GetAuction)
	api.Get("/auctions/:id/bids", h.Auction.ListBids)
	api.Get("/auctions/:id/highest-bid", h.Auction.GetHighestBid)

	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, resolver, log))

	protected.Get("/me", h.User.GetMe)
	protected.Post("/auctions", h.Auction.CreateAuction)
	protected.Post("/auctions/:id/bids",
		middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log),
		h.Auction.PlaceBid,
	)

	// Admin
	admin := protected.Group("/admin")
	admin.Post("/bids/bulk-stop", h.Admin.BulkStopBids)
	admin.Post("/bids/:id/stop", h.Admin.StopBid)
	admin.Post("/auctions/sweep", h.Admin.EndExpiredAuctions)
	admin.Post("/auctions/:id/end", h.Admin.EndAuction)
	admin.Post("/auctions/:id/cancel", h.Admin.CancelAuction)
	admin.Post("/users/:id/admin", h.Admin.AssignAdmin)
	admin.Delete("/users/:id/admin", h.Admin.RemoveAdmin)
	admin.Get("/actions", h.Admin.ListAdminActions)
}
