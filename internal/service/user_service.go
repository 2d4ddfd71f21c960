package service

import (
	"context"
	"log/slog"
	"time"

	"contentflow/internal/cache"
	"contentflow/internal/database"
	"contentflow/internal/identity"
	"contentflow/internal/middleware"
	"contentflow/internal/models"
	"contentflow/internal/repository"
)

// RetryPolicy bounds storage retries: Attempts tries with linear backoff.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

type UserService struct {
	repo     repository.UserRepository
	users    *cache.Store[models.User]
	identity identity.Provider
	retry    RetryPolicy
}

func NewUserService(repo repository.UserRepository, caches *cache.Caches, provider identity.Provider, retry RetryPolicy) *UserService {
	return &UserService{
		repo:     repo,
		users:    caches.User,
		identity: provider,
		retry:    retry,
	}
}

// Current returns the account for a verified session subject. Accounts seen
// for the first time are provisioned from the identity provider.
func (s *UserService) Current(ctx context.Context, userID string) (*models.User, error) {
	key := cache.UserKey(userID)
	if cached, ok := s.users.Get(key); ok {
		return &cached, nil
	}

	user, err := database.RetryValue(ctx, s.retry.Attempts, s.retry.Delay, "get_user", func(ctx context.Context) (*models.User, error) {
		return s.repo.GetByID(ctx, userID)
	})
	switch {
	case err == nil:
	case models.IsNotFound(err):
		user, err = s.provision(ctx, userID)
		if err != nil {
			return nil, err
		}
	default:
		middleware.Logger.ErrorContext(ctx, "failed to load user", slog.String("error", err.Error()))
		return nil, models.NewServiceUnavailableError("Database temporarily unavailable. Please try again in a moment.", err)
	}

	s.users.Set(key, *user)
	return user, nil
}

func (s *UserService) provision(ctx context.Context, userID string) (*models.User, error) {
	profile, err := s.identity.FetchProfile(ctx, userID)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to fetch identity profile", slog.String("error", err.Error()))
		return nil, &models.AppError{
			Code:    models.CodeInternal,
			Message: "Failed to create user account. Please try again.",
			Err:     err,
		}
	}

	user, err := database.RetryValue(ctx, s.retry.Attempts, s.retry.Delay, "create_user", func(ctx context.Context) (*models.User, error) {
		return s.repo.Create(ctx, &models.User{
			ID:              userID,
			Email:           profile.Email,
			FirstName:       profile.FirstName,
			LastName:        profile.LastName,
			ProfileImageURL: profile.ProfileImageURL,
		})
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user provisioned")
	return user, nil
}

// Invalidate drops the cached account.
func (s *UserService) Invalidate(userID string) {
	s.users.Delete(cache.UserKey(userID))
}

// Logout forgets the cached account; the session itself ends client-side.
func (s *UserService) Logout(userID string) {
	s.Invalidate(userID)
}
