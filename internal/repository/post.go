package repository

import (
	"context"
	"errors"
	"time"

	"townsquare/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// feedColumns selects a post joined with its author's display name.
const feedColumns = "posts.id, posts.content, posts.image_url, users.name AS author, " +
	"posts.author_id, posts.created_at, posts.updated_at"

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string, updatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListFeed(ctx context.Context) ([]models.FeedItem, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.FeedItem, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// UpdateContent replaces the text of a post. The image and author are never touched.
func (r *postRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"content":    content,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// Delete removes the row permanently.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// ListFeed returns every post, newest first. Posts sharing a creation instant
// are ordered by id so the sequence is stable.
func (r *postRepository) ListFeed(ctx context.Context) ([]models.FeedItem, error) {
	return r.scanFeed(r.feedQuery(ctx))
}

// ListByAuthor returns the author's posts in feed order.
func (r *postRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.FeedItem, error) {
	return r.scanFeed(r.feedQuery(ctx).Where("posts.author_id = ?", authorID))
}

func (r *postRepository) feedQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("posts").
		Select(feedColumns).
		Joins("JOIN users ON users.id = posts.author_id")
}

func (r *postRepository) scanFeed(q *gorm.DB) ([]models.FeedItem, error) {
	var items []models.FeedItem
	if err := q.Order("posts.created_at DESC").Order("posts.id DESC").Scan(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if items == nil {
		items = []models.FeedItem{}
	}
	return items, nil
}
