package repository

import (
	"context"
	"errors"
	"time"

	"townsquare/internal/cache"
	"townsquare/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileChanges lists the profile columns to write; nil fields are left untouched.
type ProfileChanges struct {
	Name *string
	Bio  *string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Email is already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID returns the user with id. Reads go through the user cache, so the
// returned record never carries the password hash.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		return r.first(ctx, id, &user)
	})
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return &user, nil
}

func (r *userRepository) first(ctx context.Context, id uuid.UUID, dest *models.User) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetByEmail returns (nil, nil) when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// UpdateProfile writes only the provided columns and returns the stored record.
func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*models.User, error) {
	updates := map[string]interface{}{}
	if changes.Name != nil {
		updates["name"] = *changes.Name
	}
	if changes.Bio != nil {
		updates["bio"] = *changes.Bio
	}

	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumns(updates)
		if res.Error != nil {
			return nil, models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, models.NewNotFoundError("User", id)
		}
		cache.InvalidateUser(ctx, id)
	}

	var user models.User
	if err := r.first(ctx, id, &user); err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return &user, nil
}
