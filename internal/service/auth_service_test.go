package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"townsquare/internal/models"
	"townsquare/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService() (*AuthService, *testutil.UserStore, *TokenService) {
	users := testutil.NewUserStore()
	tokens := NewTokenService(testSecret, time.Hour)
	svc := NewAuthService(users, tokens)
	svc.hashCost = bcrypt.MinCost
	return svc, users, tokens
}

func TestAuthService_Register(t *testing.T) {
	svc, users, _ := newTestAuthService()

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "  Ada Lovelace ",
		Email:    " Ada@Example.COM ",
		Password: "correct-horse",
		Bio:      "first programmer",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)

	stored, ok := users.Stored(user.ID)
	require.True(t, ok)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse")))
}

func TestAuthService_RegisterValidation(t *testing.T) {
	valid := RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "password1"}

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"blank name", func(in *RegisterInput) { in.Name = "   " }},
		{"long name", func(in *RegisterInput) { in.Name = strings.Repeat("n", 51) }},
		{"missing email", func(in *RegisterInput) { in.Email = "" }},
		{"malformed email", func(in *RegisterInput) { in.Email = "bob@" }},
		{"short password", func(in *RegisterInput) { in.Password = "short" }},
		{"long password", func(in *RegisterInput) { in.Password = strings.Repeat("p", 73) }},
		{"long bio", func(in *RegisterInput) { in.Bio = strings.Repeat("b", 501) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, _ := newTestAuthService()
			in := valid
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			assert.True(t, models.IsCode(err, models.CodeValidation), "got %v", err)

			found, _ := users.GetByEmail(context.Background(), "bob@example.com")
			assert.Nil(t, found)
		})
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "dup@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "DUP@example.com", Password: "password2"})
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)
}

func TestAuthService_Login(t *testing.T) {
	svc, _, tokens := newTestAuthService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Cy", Email: "cy@example.com", Password: "password1"})
	require.NoError(t, err)

	res, err := svc.Login(ctx, LoginInput{Email: "CY@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.Empty(t, res.User.PasswordHash)

	id, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Name: "Di", Email: "di@example.com", Password: "password1"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "di@example.com", Password: "password2"})
	_, unknownEmail := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password1"})

	assert.True(t, models.IsCode(wrongPassword, models.CodeInvalidCredentials))
	assert.True(t, models.IsCode(unknownEmail, models.CodeInvalidCredentials))
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	_, missing := svc.Login(ctx, LoginInput{Email: "di@example.com"})
	assert.True(t, models.IsCode(missing, models.CodeValidation))
}

func TestAuthService_StoreFailureSurfaces(t *testing.T) {
	svc, users, _ := newTestAuthService()
	users.Err = models.NewInternalError(errors.New("connection refused"))

	_, err := svc.Register(context.Background(), RegisterInput{Name: "E", Email: "e@example.com", Password: "password1"})
	assert.True(t, models.IsCode(err, models.CodeInternal))

	_, err = svc.Login(context.Background(), LoginInput{Email: "e@example.com", Password: "password1"})
	assert.True(t, models.IsCode(err, models.CodeInternal))
}
