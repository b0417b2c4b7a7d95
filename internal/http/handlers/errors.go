package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/http/dto"
	"github.com/samirnavas/who-gets-it/internal/middleware"
	"github.com/samirnavas/who-gets-it/internal/services"
	"go.uber.org/zap"
)

var kindStatus = map[services.RejectionKind]int{
	services.KindValidation:   fiber.StatusBadRequest,
	services.KindPrecondition: fiber.StatusConflict,
	services.KindPermission:   fiber.StatusForbidden,
	services.KindNotFound:     fiber.StatusNotFound,
	services.KindConflict:     fiber.StatusConflict,
	services.KindPersistence:  fiber.StatusInternalServerError,
}

// respondError writes err as an ErrorResponse. Rejections keep their reason;
// anything else is reported as an internal error.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := fiber.StatusInternalServerError
	var rej *services.Rejection
	if errors.As(err, &rej) {
		if s, ok := kindStatus[rej.Kind]; ok {
			status = s
		}
	}
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: services.ReasonOf(err), RequestID: middleware.GetRequestID(c)})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}
