package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"townsquare/internal/middleware"
	"townsquare/internal/models"
	"townsquare/internal/repository"
	"townsquare/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Bio      string
}

type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService handles account registration and login.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *TokenService
	hashCost int
}

func NewAuthService(userRepo repository.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := validation.NormalizeEmail(in.Email)
	bio := strings.TrimSpace(in.Bio)

	if err := validation.ValidateName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateBio(bio); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Bio:          bio,
	}
	// A concurrent registration can still lose the race on the unique index;
	// the store reports that as CONFLICT too.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID.String()))
	user.PasswordHash = ""
	return user, nil
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := validation.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, models.NewInvalidCredentialsError()
		}
		return nil, models.NewInternalError(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user.PasswordHash = ""
	return &LoginResult{Token: token, User: user}, nil
}
