package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/http/dto"
	"github.com/samirnavas/who-gets-it/internal/middleware"
	"github.com/samirnavas/who-gets-it/internal/repositories"
	"github.com/samirnavas/who-gets-it/internal/services"
	"go.uber.org/zap"
)

type AuctionHandler struct {
	auctions *services.AuctionService
	bids     *services.BidService
	log      *zap.Logger
}

func NewAuctionHandler(auctions *services.AuctionService, bids *services.BidService, log *zap.Logger) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, bids: bids, log: log}
}

func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	var req dto.CreateAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	auction, err := h.auctions.CreateAuction(c.Context(), middleware.GetActor(c), services.CreateAuctionInput{
		Title:       req.Title,
		Description: req.Description,
		StartingBid: req.StartingBid,
		EndTime:     req.EndTime,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: auction})
}

func (h *AuctionHandler) ListAuctions(c *fiber.Ctx) error {
	filter := repositories.AuctionFilter{Limit: 20}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("owner_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "invalid owner_id")
		}
		filter.OwnerID = &id
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	auctions, err := h.auctions.ListAuctions(c.Context(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: auctions})
}

func (h *AuctionHandler) GetAuction(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid auction id")
	}

	auction, err := h.auctions.GetAuction(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: auction})
}

func (h *AuctionHandler) ListBids(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid auction id")
	}

	bids, err := h.auctions.ListBids(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: bids})
}

func (h *AuctionHandler) GetHighestBid(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid auction id")
	}

	bid, err := h.bids.ComputeHighestActiveBid(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	minimum, err := h.bids.MinimumBid(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.HighestBidResponse{Bid: bid, MinimumBid: minimum}})
}

func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid auction id")
	}
	var req dto.PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid amount")
	}

	bid, err := h.bids.PlaceBid(c.Context(), middleware.GetActor(c), id, req.Amount)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: bid})
}
