package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/http/dto"
	"go.uber.org/zap"
)

const (
	CtxUserID = "user_id"
	CtxActor  = "actor"
)

// ActorResolver loads the current role for an authenticated user id.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID uuid.UUID) (auth.Actor, error)
}

// AuthMiddleware verifies the bearer token and attaches the caller's Actor.
// The role is read from storage on every request so a demotion applies at once.
func AuthMiddleware(secret string, resolver ActorResolver, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "missing authorization header")
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return unauthorized(c, "invalid authorization format")
		}

		claims, err := auth.ParseJWT(secret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return unauthorized(c, "invalid or expired token")
		}

		actor, err := resolver.ResolveActor(c.Context(), claims.UserID)
		if err != nil {
			log.Debug("token user not resolved", zap.String("user_id", claims.UserID.String()), zap.Error(err))
			return unauthorized(c, "unknown user")
		}

		c.Locals(CtxUserID, actor.UserID)
		c.Locals(CtxActor, actor)

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: msg, RequestID: GetRequestID(c)})
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}

// GetActor returns the authenticated caller, or a zero Actor on public routes.
func GetActor(c *fiber.Ctx) auth.Actor {
	actor, _ := c.Locals(CtxActor).(auth.Actor)
	return actor
}
