package auth

import (
	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/models"
)

// Actor is the authenticated caller of an operation. Role is loaded from the
// users table on every request, never taken from the token.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func ActorFromUser(u *models.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) IsZero() bool {
	return a.UserID == uuid.Nil
}
