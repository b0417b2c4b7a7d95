package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/samirnavas/who-gets-it/internal/auth"
	"github.com/samirnavas/who-gets-it/internal/models"
	"github.com/samirnavas/who-gets-it/internal/repositories"
	"go.uber.org/zap"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// UserService resolves identities for the HTTP layer. Credentials belong to
// the external authentication service; tokens issued here only carry an id.
type UserService struct {
	store repositories.Store
	log   *zap.Logger
}

func NewUserService(store repositories.Store, log *zap.Logger) *UserService {
	return &UserService{store: store, log: log}
}

func (s *UserService) Register(ctx context.Context, username string, email *string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, reject(KindValidation, "username must be 3-32 letters, digits, '_', '.' or '-'")
	}
	if email != nil && !strings.Contains(*email, "@") {
		return nil, reject(KindValidation, "invalid email")
	}

	user := &models.User{Username: username, Email: email, Role: models.RoleUser, CreatedAt: s.store.Now()}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, reject(KindConflict, "username already taken")
		}
		return nil, persistenceFault("create user", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, reject(KindNotFound, ReasonUserNotFound)
		}
		return nil, persistenceFault("get user", err)
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, reject(KindNotFound, ReasonUserNotFound)
		}
		return nil, persistenceFault("get user", err)
	}
	return user, nil
}

// ResolveActor loads the current role of userID.
func (s *UserService) ResolveActor(ctx context.Context, userID uuid.UUID) (auth.Actor, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return auth.Actor{}, err
	}
	return auth.ActorFromUser(user), nil
}

// EnsureAdmin promotes the named user, creating them if needed. Used to
// bootstrap the first admin from the command line.
func (s *UserService) EnsureAdmin(ctx context.Context, username string) (*models.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if KindOf(err) == KindNotFound {
		user, err = s.Register(ctx, username, nil)
	}
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return user, nil
	}
	if err := s.store.UpdateUserRole(ctx, user.ID, models.RoleAdmin); err != nil {
		return nil, persistenceFault("update role", err)
	}
	user.Role = models.RoleAdmin
	s.log.Info("admin bootstrapped", zap.String("user_id", user.ID.String()))
	return user, nil
}
