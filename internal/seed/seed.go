package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"townsquare/internal/cache"
	"townsquare/internal/middleware"
	"townsquare/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options controls a seeding run.
type Options struct {
	NumUsers  int
	NumPosts  int
	Clean     bool
	MaxDays   int
	BatchSize int
	// RandSeed makes output reproducible when non-zero.
	RandSeed int64
	// HashCost overrides bcrypt.DefaultCost; tests use bcrypt.MinCost.
	HashCost int
}

// Result reports what a run inserted.
type Result struct {
	Users []models.User
	Posts int
}

// Seeder writes generated data through gorm.
type Seeder struct {
	db   *gorm.DB
	opts Options
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.RandSeed == 0 {
		opts.RandSeed = time.Now().UnixNano()
	}
	return &Seeder{db: db, opts: opts}
}

// ClearAll removes every post and user and drops their cached entries so a
// running server stops serving them.
func (s *Seeder) ClearAll() error {
	var userIDs []uuid.UUID
	if err := s.db.Model(&models.User{}).Pluck("id", &userIDs).Error; err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if err := s.db.Where("1 = 1").Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("clear posts: %w", err)
	}
	if err := s.db.Where("1 = 1").Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("clear users: %w", err)
	}

	ctx := context.Background()
	cache.InvalidateFeed(ctx)
	for _, id := range userIDs {
		cache.InvalidateUser(ctx, id)
	}
	middleware.Logger.Info("seed: cleared posts and users", slog.Int("users", len(userIDs)))
	return nil
}

// Run inserts NumUsers users and NumPosts posts spread across them.
func (s *Seeder) Run() (*Result, error) {
	if s.opts.NumUsers <= 0 && s.opts.NumPosts > 0 {
		return nil, errors.New("posts need at least one user")
	}

	if s.opts.Clean {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), s.opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	faker := gofakeit.New(s.opts.RandSeed)
	f := NewFactory(faker, string(hash), s.opts.MaxDays)

	users := make([]models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		users = append(users, *f.BuildUser(i))
	}
	if len(users) > 0 {
		if err := s.db.CreateInBatches(&users, s.opts.BatchSize).Error; err != nil {
			return nil, fmt.Errorf("insert users: %w", err)
		}
	}
	middleware.Logger.Info("seed: users created", slog.Int("count", len(users)))

	posts := make([]models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		author := &users[faker.Number(0, len(users)-1)]
		posts = append(posts, *f.BuildPost(author))
	}
	if len(posts) > 0 {
		if err := s.db.CreateInBatches(&posts, s.opts.BatchSize).Error; err != nil {
			return nil, fmt.Errorf("insert posts: %w", err)
		}
	}
	cache.InvalidateFeed(context.Background())
	middleware.Logger.Info("seed: posts created", slog.Int("count", len(posts)))

	return &Result{Users: users, Posts: len(posts)}, nil
}
