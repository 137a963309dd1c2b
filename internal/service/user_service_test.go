package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"townsquare/internal/models"
	"townsquare/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserService_GetProfile(t *testing.T) {
	users := testutil.NewUserStore()
	posts := testutil.NewPostStore(users)
	svc := NewUserService(users, posts)
	ctx := context.Background()

	ann := users.Seed("Ann", "ann@example.com")
	ben := users.Seed("Ben", "ben@example.com")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, posts.Create(ctx, &models.Post{AuthorID: ann, Content: "old", CreatedAt: base}))
	require.NoError(t, posts.Create(ctx, &models.Post{AuthorID: ann, Content: "new", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, posts.Create(ctx, &models.Post{AuthorID: ben, Content: "other"}))

	profile, err := svc.GetProfile(ctx, ann)
	require.NoError(t, err)
	assert.Equal(t, "Ann", profile.User.Name)
	assert.Empty(t, profile.User.PasswordHash)
	require.Len(t, profile.Posts, 2)
	assert.Equal(t, "new", profile.Posts[0].Content)
	assert.Equal(t, "old", profile.Posts[1].Content)
	assert.Equal(t, "Ann", profile.Posts[0].Author)
}

func TestUserService_GetProfileNoPosts(t *testing.T) {
	users := testutil.NewUserStore()
	svc := NewUserService(users, testutil.NewPostStore(users))
	id := users.Seed("Cy", "cy@example.com")

	profile, err := svc.GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, profile.Posts)
	assert.Empty(t, profile.Posts)
	assert.Equal(t, "cy@example.com", profile.User.Email)
}

func TestUserService_GetProfileNotFound(t *testing.T) {
	users := testutil.NewUserStore()
	svc := NewUserService(users, testutil.NewPostStore(users))

	_, err := svc.GetProfile(context.Background(), uuid.New())
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserService_UpdateProfile(t *testing.T) {
	users := testutil.NewUserStore()
	svc := NewUserService(users, testutil.NewPostStore(users))
	id := users.Seed("Di", "di@example.com")
	ctx := context.Background()

	updated, err := svc.UpdateProfile(ctx, UpdateProfileInput{RequesterID: id, TargetID: id, Bio: strPtr(" hello ")})
	require.NoError(t, err)
	assert.Equal(t, "Di", updated.Name)
	assert.Equal(t, "hello", updated.Bio)
	assert.Empty(t, updated.PasswordHash)

	updated, err = svc.UpdateProfile(ctx, UpdateProfileInput{RequesterID: id, TargetID: id, Name: strPtr("Diana")})
	require.NoError(t, err)
	assert.Equal(t, "Diana", updated.Name)
	assert.Equal(t, "hello", updated.Bio)

	updated, err = svc.UpdateProfile(ctx, UpdateProfileInput{RequesterID: id, TargetID: id, Bio: strPtr("")})
	require.NoError(t, err)
	assert.Empty(t, updated.Bio)

	stored, _ := users.Stored(id)
	assert.Equal(t, "x", stored.PasswordHash)
}

func TestUserService_UpdateProfileForbidden(t *testing.T) {
	users := testutil.NewUserStore()
	svc := NewUserService(users, testutil.NewPostStore(users))
	victim := users.Seed("Eve", "eve@example.com")

	_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		RequesterID: uuid.New(),
		TargetID:    victim,
		Name:        strPtr("pwned"),
	})
	assert.True(t, models.IsCode(err, models.CodeForbidden))
	assert.Equal(t, 0, users.UpdateCalls)

	stored, _ := users.Stored(victim)
	assert.Equal(t, "Eve", stored.Name)
}

func TestUserService_UpdateProfileValidation(t *testing.T) {
	users := testutil.NewUserStore()
	svc := NewUserService(users, testutil.NewPostStore(users))
	id := users.Seed("Fay", "fay@example.com")

	tests := []struct {
		name string
		in   UpdateProfileInput
	}{
		{"blank name", UpdateProfileInput{RequesterID: id, TargetID: id, Name: strPtr("  ")}},
		{"long name", UpdateProfileInput{RequesterID: id, TargetID: id, Name: strPtr(strings.Repeat("n", 51))}},
		{"long bio", UpdateProfileInput{RequesterID: id, TargetID: id, Bio: strPtr(strings.Repeat("b", 501))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), tt.in)
			assert.True(t, models.IsCode(err, models.CodeValidation), "got %v", err)
		})
	}
	assert.Equal(t, 0, users.UpdateCalls)
}

func TestUserService_UpdateProfileMissingUser(t *testing.T) {
	users := testutil.NewUserStore()
	svc := NewUserService(users, testutil.NewPostStore(users))
	id := uuid.New()

	_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{RequesterID: id, TargetID: id, Bio: strPtr("hi")})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
