// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"time"

	"townsquare/internal/models"
	"townsquare/internal/repository"

	"github.com/google/uuid"
)

// UserStore is an in-memory repository.UserRepository.
type UserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User

	// Err, when set, is returned by every call.
	Err error
	// UpdateCalls counts UpdateProfile invocations.
	UpdateCalls int
}

var _ repository.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]models.User)}
}

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return models.NewConflictError("Email is already registered")
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	u.PasswordHash = ""
	return &u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *UserStore) UpdateProfile(_ context.Context, id uuid.UUID, changes repository.ProfileChanges) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	if changes.Name != nil {
		u.Name = *changes.Name
	}
	if changes.Bio != nil {
		u.Bio = *changes.Bio
	}
	if changes.Name != nil || changes.Bio != nil {
		u.UpdatedAt = time.Now().UTC()
	}
	s.users[id] = u
	u.PasswordHash = ""
	return &u, nil
}

// Stored returns the raw record, password hash included.
func (s *UserStore) Stored(id uuid.UUID) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// Seed inserts user directly and returns its id.
func (s *UserStore) Seed(name, email string) uuid.UUID {
	u := &models.User{Name: name, Email: email, PasswordHash: "x"}
	_ = s.Create(context.Background(), u)
	return u.ID
}

// PostStore is an in-memory repository.PostRepository. Author names for feed
// items are looked up in Users.
type PostStore struct {
	mu    sync.Mutex
	posts map[uuid.UUID]models.Post
	Users *UserStore

	// Err, when set, is returned by every call.
	Err error
}

var _ repository.PostRepository = (*PostStore)(nil)

func NewPostStore(users *UserStore) *PostStore {
	return &PostStore{posts: make(map[uuid.UUID]models.Post), Users: users}
}

func (s *PostStore) Create(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	s.posts[post.ID] = *post
	return nil
}

func (s *PostStore) GetByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	return &p, nil
}

func (s *PostStore) UpdateContent(_ context.Context, id uuid.UUID, content string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	p, ok := s.posts[id]
	if !ok {
		return models.NewNotFoundError("Post", id)
	}
	p.Content = content
	p.UpdatedAt = updatedAt
	s.posts[id] = p
	return nil
}

func (s *PostStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.posts[id]; !ok {
		return models.NewNotFoundError("Post", id)
	}
	delete(s.posts, id)
	return nil
}

func (s *PostStore) ListFeed(_ context.Context) ([]models.FeedItem, error) {
	return s.list(func(models.Post) bool { return true })
}

func (s *PostStore) ListByAuthor(_ context.Context, authorID uuid.UUID) ([]models.FeedItem, error) {
	return s.list(func(p models.Post) bool { return p.AuthorID == authorID })
}

func (s *PostStore) list(keep func(models.Post) bool) ([]models.FeedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	items := []models.FeedItem{}
	for _, p := range s.posts {
		if !keep(p) {
			continue
		}
		item := models.FeedItem{
			ID:        p.ID,
			Content:   p.Content,
			ImageURL:  p.ImageURL,
			AuthorID:  p.AuthorID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		if s.Users != nil {
			if u, ok := s.Users.Stored(p.AuthorID); ok {
				item.Author = u.Name
			}
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID.String() > items[j].ID.String()
	})
	return items, nil
}

// Count returns the number of stored posts.
func (s *PostStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

// TinyPNG returns an encoded PNG with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
