package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/http/dto"
	"github.com/samirnavas/who-gets-it/internal/middleware"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/samirnavas/who-gets-it/internal/repositories"
	"github.com/samirnavas/who-gets-it/internal/services"
	"go.uber.org/zap"
)

// AdminHandler exposes moderation. Admin checks happen in the services so
// refused attempts are recorded as security events.
type AdminHandler struct {
	moderation *services.ModerationService
	auctions   *services.AuctionService
	log        *zap.Logger
}

func NewAdminHandler(moderation *services.ModerationService, auctions *services.AuctionService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{moderation: moderation, auctions: auctions, log: log}
}

// reason reads an optional {"reason": "..."} body.
func reason(c *fiber.Ctx) (string, bool) {
	if len(c.Body()) == 0 {
		return "", true
	}
	var req dto.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return "", false
	}
	return req.Reason, true
}

func (h *AdminHandler) StopBid(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid bid id")
	}
	why, ok := reason(c)
	if !ok {
		return badRequest(c, "invalid request body")
	}

	bid, err := h.moderation.StopBid(c.Context(), middleware.GetActor(c), id, why)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: bid})
}

func (h *AdminHandler) BulkStopBids(c *fiber.Ctx) error {
	var req dto.BulkStopRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	results, err := h.moderation.BulkStopBids(c.Context(), middleware.GetActor(c), req.BidIDs, req.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}

	resp := dto.BulkStopResponse{Results: make(map[uuid.UUID]dto.BulkStopResult, len(results))}
	for id, r := range results {
		resp.Results[id] = dto.BulkStopResult{Stopped: r.Stopped, Reason: r.Reason}
		if r.Stopped {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: resp})
}

func (h *AdminHandler) EndAuction(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid auction id")
	}
	why, ok := reason(c)
	if !ok {
		return badRequest(c, "invalid request body")
	}

	result, err := h.auctions.EndAuction(c.Context(), middleware.GetActor(c), id, why)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: result})
}

func (h *AdminHandler) CancelAuction(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid auction id")
	}
	why, ok := reason(c)
	if !ok {
		return badRequest(c, "invalid request body")
	}

	auction, err := h.auctions.CancelAuction(c.Context(), middleware.GetActor(c), id, why)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: auction})
}

func (h *AdminHandler) EndExpiredAuctions(c *fiber.Ctx) error {
	ended, err := h.moderation.EndExpiredAuctions(c.Context(), middleware.GetActor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.SweepResponse{Ended: ended, Count: len(ended)}})
}

func (h *AdminHandler) AssignAdmin(c *fiber.Ctx) error {
	return h.changeRole(c, h.moderation.AssignAdmin)
}

func (h *AdminHandler) RemoveAdmin(c *fiber.Ctx) error {
	return h.changeRole(c, h.moderation.RemoveAdmin)
}

type roleChange func(ctx context.Context, actor auth.Actor, userID uuid.UUID, reason string) (*models.User, error)

func (h *AdminHandler) changeRole(c *fiber.Ctx, change roleChange) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	why, ok := reason(c)
	if !ok {
		return badRequest(c, "invalid request body")
	}

	user, err := change(c.Context(), middleware.GetActor(c), id, why)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}

func (h *AdminHandler) ListAdminActions(c *fiber.Ctx) error {
	filter := repositories.AdminActionFilter{Limit: 50}
	if v := c.Query("action_type"); v != "" {
		filter.ActionType = &v
	}
	if v := c.Query("admin_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "invalid admin_id")
		}
		filter.AdminID = &id
	}
	if v := c.Query("target_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "invalid target_id")
		}
		filter.TargetID = &id
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

	actions, err := h.moderation.ListAdminActions(c.Context(), middleware.GetActor(c), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: actions})
}
