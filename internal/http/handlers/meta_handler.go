package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samirnavas/who-gets-it/internal/http/dto"
	"github.com/samirnavas/who-gets-it/internal/models"
)

type MetaHandler struct {
	policy models.BidPolicy
}

func NewMetaHandler(policy models.BidPolicy) *MetaHandler {
	return &MetaHandler{policy: policy}
}

var auctionStatuses = []string{
	models.AuctionStatusActive,
	models.AuctionStatusEnded,
	models.AuctionStatusCancelled,
}

func (h *MetaHandler) GetBidPolicy(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BidPolicyResponse{
		MinIncrement:                h.policy.MinIncrement,
		FirstBidMayEqualStartingBid: h.policy.FirstBidMayEqualStartingBid,
	}})
}

func (h *MetaHandler) GetAuctionStatuses(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: auctionStatuses})
}
