package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"townsquare/internal/cache"
	"townsquare/internal/featureflags"
	"townsquare/internal/middleware"
	"townsquare/internal/models"
	"townsquare/internal/notifications"
	"townsquare/internal/observability"
	"townsquare/internal/repository"
	"townsquare/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ImageSaver stores an uploaded image and returns the URL path it is served at.
type ImageSaver interface {
	Save(ctx context.Context, in ImageUpload) (string, error)
}

// FeedPublisher delivers feed events to stream subscribers.
type FeedPublisher interface {
	PublishFeedEvent(ctx context.Context, event notifications.FeedEvent) error
}

type PostService struct {
	postRepo repository.PostRepository
	images   ImageSaver
	events   FeedPublisher
	flags    *featureflags.Set
	now      func() time.Time
}

type CreatePostInput struct {
	AuthorID uuid.UUID
	Content  string
	Image    *ImageUpload
}

type EditPostInput struct {
	RequesterID uuid.UUID
	PostID      uuid.UUID
	Content     string
}

type DeletePostInput struct {
	RequesterID uuid.UUID
	PostID      uuid.UUID
}

// NewPostService wires the post store with its collaborators. images and
// events may be nil: image parts are then rejected and events are not sent.
func NewPostService(
	postRepo repository.PostRepository,
	images ImageSaver,
	events FeedPublisher,
	flags *featureflags.Set,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		images:   images,
		events:   events,
		flags:    flags,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source for post timestamps.
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "service.post", "create",
		attribute.String("author_id", in.AuthorID.String()))
	defer func() { observability.EndSpan(span, err) }()

	content := strings.TrimSpace(in.Content)
	hasImage := in.Image != nil && len(in.Image.Content) > 0

	if content == "" && !hasImage {
		return nil, models.NewEmptyPostError()
	}
	if err := validation.ValidateContent(content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var imageURL string
	if hasImage {
		if s.images == nil || !s.flags.For(featureflags.ImageUploads, in.AuthorID) {
			return nil, models.NewValidationError("Image uploads are disabled")
		}
		imageURL, err = s.images.Save(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	post = &models.Post{
		AuthorID:  in.AuthorID,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	observability.PostMutations.WithLabelValues("create").Inc()
	s.afterMutation(ctx, notifications.EventPostCreated, post.ID, post.AuthorID)
	return post, nil
}

// ListFeed returns every post joined with its author name, newest first.
func (s *PostService) ListFeed(ctx context.Context) (items []models.FeedItem, err error) {
	ctx, span := observability.StartSpan(ctx, "service.post", "list_feed")
	defer func() { observability.EndSpan(span, err) }()

	err = cache.Aside(ctx, cache.FeedKey(), &items, cache.FeedTTL, func() error {
		fetched, fetchErr := s.postRepo.ListFeed(ctx)
		if fetchErr != nil {
			return fetchErr
		}
		items = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.FeedItem{}
	}
	return items, nil
}

// EditPost replaces the text of a post owned by the requester. The image is
// never changed and updated_at never moves backwards.
func (s *PostService) EditPost(ctx context.Context, in EditPostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "service.post", "edit",
		attribute.String("post_id", in.PostID.String()))
	defer func() { observability.EndSpan(span, err) }()

	post, err = s.ownedPost(ctx, in.RequesterID, in.PostID)
	if err != nil {
		return nil, err
	}

	edited := *post
	edited.Content = strings.TrimSpace(in.Content)
	if edited.IsEmpty() {
		return nil, models.NewEmptyPostError()
	}
	if err := validation.ValidateContent(edited.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	edited.UpdatedAt = s.now()
	if edited.UpdatedAt.Before(post.UpdatedAt) {
		edited.UpdatedAt = post.UpdatedAt
	}
	if err := s.postRepo.UpdateContent(ctx, edited.ID, edited.Content, edited.UpdatedAt); err != nil {
		return nil, err
	}
	post = &edited

	observability.PostMutations.WithLabelValues("edit").Inc()
	s.afterMutation(ctx, notifications.EventPostUpdated, post.ID, post.AuthorID)
	return post, nil
}

// DeletePost permanently removes a post owned by the requester.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "service.post", "delete",
		attribute.String("post_id", in.PostID.String()))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.ownedPost(ctx, in.RequesterID, in.PostID)
	if err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}

	observability.PostMutations.WithLabelValues("delete").Inc()
	s.afterMutation(ctx, notifications.EventPostDeleted, post.ID, post.AuthorID)
	return nil
}

// ownedPost loads a post and checks that requesterID authored it.
func (s *PostService) ownedPost(ctx context.Context, requesterID, postID uuid.UUID) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != requesterID {
		observability.OwnershipRejections.WithLabelValues("post").Inc()
		return nil, models.NewForbiddenError("You can only modify your own posts")
	}
	return post, nil
}

// afterMutation drops the cached feed and notifies subscribers. Neither step
// can fail the request.
func (s *PostService) afterMutation(ctx context.Context, eventType string, postID, authorID uuid.UUID) {
	cache.InvalidateFeed(ctx)

	if s.events == nil || !s.flags.On(featureflags.FeedEvents) {
		return
	}
	event := notifications.NewFeedEvent(eventType, postID, authorID, s.now())
	if err := s.events.PublishFeedEvent(ctx, event); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish feed event",
			slog.String("event_type", eventType),
			slog.String("post_id", postID.String()),
			slog.String("error", err.Error()))
	}
}
