package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidEmail is returned when a non-empty email does not parse.
	ErrInvalidEmail = errors.New("invalid email")
)

const bcryptCost = 10

// Service issues and checks credentials for the development backend.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, username, password, email string) (*store.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return nil, ErrInvalidUsername
	}
	if len(password) < 6 {
		return nil, ErrInvalidPassword
	}
	email = strings.TrimSpace(email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, ErrInvalidEmail
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, email, string(hash))
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login validates credentials and returns an access/refresh pair.
func (s *Service) Login(ctx context.Context, username, password string) (core.TokenPair, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return core.TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return core.TokenPair{}, ErrInvalidCredentials
	}

	access, err := GenerateToken(s.jwtConfig, user.ID, user.Username, KindAccess)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := GenerateToken(s.jwtConfig, user.ID, user.Username, KindRefresh)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return core.TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtConfig, refreshToken, KindRefresh)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	// The account may have been removed since the refresh token was issued.
	if _, err := s.store.GetUserByID(ctx, claims.UserID); err != nil {
		return "", ErrInvalidCredentials
	}
	return GenerateToken(s.jwtConfig, claims.UserID, claims.Username, KindAccess)
}

// ValidateToken validates an access token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString, KindAccess)
}

// User returns the account behind a validated token.
func (s *Service) User(ctx context.Context, id int64) (*store.User, error) {
	return s.store.GetUserByID(ctx, id)
}
