package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type fakeResolver map[uuid.UUID]string

func (r fakeResolver) ResolveActor(_ context.Context, userID uuid.UUID) (auth.Actor, error) {
	role, ok := r[userID]
	if !ok {
		return auth.Actor{}, errors.New("not found")
	}
	return auth.Actor{UserID: userID, Role: role}, nil
}

func newAuthApp(resolver ActorResolver) *fiber.App {
	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Get("/me", AuthMiddleware(testSecret, resolver, zap.NewNop()), func(c *fiber.Ctx) error {
		actor := GetActor(c)
		return c.SendString(actor.Role + ":" + GetUserID(c).String())
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	admin := uuid.New()
	ghost := uuid.New()
	app := newAuthApp(fakeResolver{admin: models.RoleAdmin})

	token := func(id uuid.UUID) string {
		tok, err := auth.GenerateJWT(testSecret, id, time.Hour)
		require.NoError(t, err)
		return tok
	}
	otherSecret, err := auth.GenerateJWT("other", admin, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token(admin), fiber.StatusOK},
		{"missing header", "", fiber.StatusUnauthorized},
		{"no bearer prefix", token(admin), fiber.StatusUnauthorized},
		{"wrong secret", "Bearer " + otherSecret, fiber.StatusUnauthorized},
		{"unknown user", "Bearer " + token(ghost), fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
