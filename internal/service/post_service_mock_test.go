package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"townsquare/internal/featureflags"
	"townsquare/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string, updatedAt time.Time) error {
	args := m.Called(ctx, id, content, updatedAt)
	return args.Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPostRepository) ListFeed(ctx context.Context) ([]models.FeedItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedItem), args.Error(1)
}

func (m *MockPostRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.FeedItem, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedItem), args.Error(1)
}

func newMockedPostService(repo *MockPostRepository) (*PostService, *publisherStub) {
	events := &publisherStub{}
	svc := NewPostService(repo, nil, events, featureflags.Parse("feed_events=on"))
	return svc, events
}

func TestPostService_StoreFailuresSurface(t *testing.T) {
	ctx := context.Background()
	storeErr := models.NewInternalError(errors.New("connection reset"))
	author := uuid.New()

	t.Run("create", func(t *testing.T) {
		repo := new(MockPostRepository)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Post")).Return(storeErr)
		svc, events := newMockedPostService(repo)

		_, err := svc.CreatePost(ctx, CreatePostInput{AuthorID: author, Content: "hello"})
		require.Error(t, err)
		assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
		assert.Empty(t, events.types())
		repo.AssertExpectations(t)
	})

	t.Run("edit", func(t *testing.T) {
		post := &models.Post{ID: uuid.New(), AuthorID: author, Content: "before"}
		repo := new(MockPostRepository)
		repo.On("GetByID", mock.Anything, post.ID).Return(post, nil)
		repo.On("UpdateContent", mock.Anything, post.ID, "after", mock.AnythingOfType("time.Time")).Return(storeErr)
		svc, events := newMockedPostService(repo)

		_, err := svc.EditPost(ctx, EditPostInput{RequesterID: author, PostID: post.ID, Content: "after"})
		require.Error(t, err)
		assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
		assert.Empty(t, events.types())
		repo.AssertExpectations(t)
	})

	t.Run("list feed", func(t *testing.T) {
		repo := new(MockPostRepository)
		repo.On("ListFeed", mock.Anything).Return(nil, storeErr)
		svc, _ := newMockedPostService(repo)

		items, err := svc.ListFeed(ctx)
		require.Error(t, err)
		assert.Nil(t, items)
	})
}

func TestPostService_NonOwnerNeverReachesStoreWrite(t *testing.T) {
	ctx := context.Background()
	post := &models.Post{ID: uuid.New(), AuthorID: uuid.New(), Content: "mine"}
	intruder := uuid.New()

	repo := new(MockPostRepository)
	repo.On("GetByID", mock.Anything, post.ID).Return(post, nil)
	svc, events := newMockedPostService(repo)

	_, err := svc.EditPost(ctx, EditPostInput{RequesterID: intruder, PostID: post.ID, Content: "theirs"})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	err = svc.DeletePost(ctx, DeletePostInput{RequesterID: intruder, PostID: post.ID})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	repo.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.Empty(t, events.types())
}
