package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/config"
	"github.com/samirnavas/who-gets-it/internal/http/dto"
	"github.com/samirnavas/who-gets-it/internal/middleware"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/samirnavas/who-gets-it/internal/services"
	"go.uber.org/zap"
)

// AuthHandler exchanges identity assertions from the authentication
// service for API tokens.
type AuthHandler struct {
	users *services.UserService
	cfg   *config.Config
	log   *zap.Logger
}

func NewAuthHandler(users *services.UserService, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, cfg: cfg, log: log}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	username, status, msg := h.verify(req.Assertion)
	if status != 0 {
		return c.Status(status).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
	}

	user, err := h.users.Register(c.Context(), username, req.Email)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return h.issue(c, fiber.StatusCreated, user)
}

func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	username, status, msg := h.verify(req.Assertion)
	if status != 0 {
		return c.Status(status).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
	}

	user, err := h.users.GetByUsername(c.Context(), username)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return h.issue(c, fiber.StatusOK, user)
}

// verify returns the asserted username, or a non-zero status and message
// when the assertion is refused.
func (h *AuthHandler) verify(assertion string) (string, int, string) {
	if assertion == "" {
		return "", fiber.StatusBadRequest, "assertion is required"
	}
	vals, err := auth.VerifyIdentityAssertion(assertion, h.cfg.AuthAssertionSecret, h.cfg.AuthAssertionMaxAge)
	if errors.Is(err, auth.ErrAssertionSecretMissing) {
		h.log.Warn("token requested but AUTH_ASSERTION_SECRET is not set")
		return "", fiber.StatusServiceUnavailable, "token issuance is not configured"
	}
	if err != nil {
		h.log.Debug("identity assertion rejected", zap.Error(err))
		return "", fiber.StatusUnauthorized, "invalid identity assertion"
	}
	return vals.Get("username"), 0, ""
}

func (h *AuthHandler) issue(c *fiber.Ctx, status int, user *models.User) error {
	token, err := auth.GenerateJWT(h.cfg.JWTSecret, user.ID, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.Status(status).JSON(dto.AuthResponse{Token: token, User: user})
}
