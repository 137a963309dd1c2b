package service

import (
	"context"
	"strings"

	"townsquare/internal/cache"
	"townsquare/internal/models"
	"townsquare/internal/observability"
	"townsquare/internal/repository"
	"townsquare/internal/validation"

	"github.com/google/uuid"
)

type UserService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
}

type UpdateProfileInput struct {
	RequesterID uuid.UUID
	TargetID    uuid.UUID
	Name        *string
	Bio         *string
}

func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository) *UserService {
	return &UserService{userRepo: userRepo, postRepo: postRepo}
}

// GetProfile returns the user and their posts, newest first.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.FeedItem{}
	}
	user.PasswordHash = ""
	return &models.Profile{User: *user, Posts: posts}, nil
}

// UpdateProfile applies the provided fields to the requester's own record.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	if in.RequesterID != in.TargetID {
		observability.OwnershipRejections.WithLabelValues("user").Inc()
		return nil, models.NewForbiddenError("You can only update your own profile")
	}

	var changes repository.ProfileChanges
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		changes.Name = &name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if err := validation.ValidateBio(bio); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		changes.Bio = &bio
	}

	user, err := s.userRepo.UpdateProfile(ctx, in.TargetID, changes)
	if err != nil {
		return nil, err
	}
	// Feed items carry the author's name.
	if changes.Name != nil {
		cache.InvalidateFeed(ctx)
	}
	user.PasswordHash = ""
	return user, nil
}
