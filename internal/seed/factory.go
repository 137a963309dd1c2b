// Package seed creates demo users and posts for local development.
package seed

import (
	"fmt"
	"strings"
	"time"

	"townsquare/internal/models"
	"townsquare/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// DemoPassword is the plaintext password shared by every seeded account.
const DemoPassword = "password123"

// Factory builds unsaved users and posts from fake data.
type Factory struct {
	faker        *gofakeit.Faker
	passwordHash string
	maxDays      int
	now          func() time.Time
}

// NewFactory returns a Factory. passwordHash is stored on every user it builds.
func NewFactory(faker *gofakeit.Faker, passwordHash string, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{faker: faker, passwordHash: passwordHash, maxDays: maxDays, now: time.Now}
}

// BuildUser returns a user whose email is unique by construction via n.
func (f *Factory) BuildUser(n int) *models.User {
	name := f.faker.Name()
	if len([]rune(name)) > validation.MaxNameLength {
		name = string([]rune(name)[:validation.MaxNameLength])
	}
	handle := strings.ToLower(strings.ReplaceAll(f.faker.Username(), " ", ""))

	createdAt := f.pastTime()
	return &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        fmt.Sprintf("%s.%d@example.com", handle, n),
		PasswordHash: f.passwordHash,
		Bio:          f.faker.Sentence(10),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// BuildPost returns a post by author. Roughly a third carry an image and
// some of those have no text.
func (f *Factory) BuildPost(author *models.User) *models.Post {
	post := &models.Post{
		ID:       uuid.New(),
		AuthorID: author.ID,
		Content:  f.faker.Paragraph(1, 3, 12, " "),
	}

	switch f.faker.Number(0, 5) {
	case 0:
		post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
		post.Content = ""
	case 1:
		post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())
	}

	if len([]rune(post.Content)) > validation.MaxContentLength {
		post.Content = string([]rune(post.Content)[:validation.MaxContentLength])
	}

	createdAt := f.pastTime()
	if createdAt.Before(author.CreatedAt) {
		createdAt = author.CreatedAt
	}
	post.CreatedAt = createdAt
	post.UpdatedAt = createdAt
	return post
}

// pastTime spreads timestamps over the last maxDays days.
func (f *Factory) pastTime() time.Time {
	days := f.faker.Number(0, f.maxDays-1)
	hours := f.faker.Number(0, 23)
	mins := f.faker.Number(0, 59)
	return f.now().UTC().Add(-time.Duration(days)*24*time.Hour -
		time.Duration(hours)*time.Hour -
		time.Duration(mins)*time.Minute)
}
