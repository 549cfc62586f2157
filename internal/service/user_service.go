package service

import (
	"context"
	"errors"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	users "github.com/AdamBeresnev/op-bracket/internal/user"
	"github.com/AdamBeresnev/op-bracket/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth"
)

type UserService struct {
	db    *sqlx.DB
	store *store.UserStore
}

func NewUserService(db *sqlx.DB, store *store.UserStore) *UserService {
	return &UserService{db: db, store: store}
}

func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)

	if err == nil {
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != gothUser.NickName {
			user.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
			if gothUser.NickName != "" {
				user.Username = gothUser.NickName
			}
			if err := s.store.UpdateUserNameAndAvatar(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}

	if errors.Is(err, bracket.ErrNotFound) {
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   gothUser.Name,
			CreatedAt:  time.Now().UTC(),
			Provider:   utils.Ptr(gothUser.Provider),
			ProviderID: utils.Ptr(gothUser.UserID),
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
		}
		if err := s.store.CreateUser(ctx, newUser); err != nil {
			return nil, err
		}
		return newUser, nil
	}

	return nil, err
}

// EnsureGuestUser returns the shared guest account, creating it if the
// seed row was removed.
func (s *UserService) EnsureGuestUser(ctx context.Context) (*users.User, error) {
	user, err := s.store.GetUser(ctx, users.GuestID)
	if err == nil {
		return user, nil
	}

	if errors.Is(err, bracket.ErrNotFound) {
		guestUser := &users.User{
			ID:        users.GuestID,
			Email:     "guest@op-bracket.app",
			Username:  "Guest User",
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.CreateUser(ctx, guestUser); err != nil {
			return nil, err
		}
		return guestUser, nil
	}
	return nil, err
}
