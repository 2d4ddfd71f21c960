package repository

import (
	"context"
	"errors"

	"contentflow/internal/models"
	"contentflow/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const userTable = "users"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Create inserts user unless the id already exists, and returns the stored row.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateCalendarTokens(ctx context.Context, id string, tokens models.CalendarTokens) (*models.User, error)
	DisconnectCalendar(ctx context.Context, id string) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (user *models.User, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByID", userTable)
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("select", userTable)()

	return r.first(r.db.WithContext(ctx), id)
}

func (r *userRepository) first(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// Concurrent first requests for the same account may both try to provision
// it; the loser reads the winner's row.
func (r *userRepository) Create(ctx context.Context, user *models.User) (out *models.User, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Create", userTable)
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("insert", userTable)()

	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, models.NewValidationError("User already exists")
		}
		return nil, models.NewInternalError(err)
	}
	return r.first(db, user.ID)
}

// UpdateCalendarTokens enables calendar sync. An empty refresh token keeps
// the stored one, since refresh grants do not return a new one.
func (r *userRepository) UpdateCalendarTokens(ctx context.Context, id string, tokens models.CalendarTokens) (user *models.User, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "UpdateCalendarTokens", userTable)
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("update", userTable)()

	columns := map[string]any{
		"google_calendar_enabled": true,
		"google_access_token":     tokens.AccessToken,
		"google_token_expiry":     tokens.Expiry,
	}
	if tokens.RefreshToken != "" {
		columns["google_refresh_token"] = tokens.RefreshToken
	}
	return r.updateColumns(ctx, id, columns)
}

func (r *userRepository) DisconnectCalendar(ctx context.Context, id string) (user *models.User, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "DisconnectCalendar", userTable)
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("update", userTable)()

	return r.updateColumns(ctx, id, map[string]any{
		"google_calendar_enabled": false,
		"google_access_token":     nil,
		"google_refresh_token":    nil,
		"google_token_expiry":     nil,
	})
}

func (r *userRepository) updateColumns(ctx context.Context, id string, columns map[string]any) (*models.User, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.User{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("User", id)
	}
	return r.first(db, id)
}
