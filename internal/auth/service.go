package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/bugtrack/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt limit
)

// userStore abstracts the persistence layer.
type userStore interface {
	CreateUser(ctx context.Context, email, passwordHash string, displayName *string, isAdmin bool) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (User, error)
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	RevokeToken(ctx context.Context, userID uuid.UUID, tokenHash string) error
}

// Service registers accounts, checks credentials and issues tokens for the bug tracker.
type Service struct {
	store   userStore
	cfg     config.AuthConfig
	nowFunc func() time.Time
}

// NewService creates a Service with dependencies.
func NewService(store userStore, cfg config.AuthConfig) *Service {
	return &Service{
		store:   store,
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// RegisterInput carries data for user registration.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName *string
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult contains user and token information.
type AuthResult struct {
	User   User
	Tokens TokenPair
}

// Register creates an account. Emails listed in the admin configuration get the admin role.
func (s *Service) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || !passwordLengthOK(input.Password) {
		return AuthResult{}, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	isAdmin := s.cfg.IsAdminEmail(email)
	user, err := s.store.CreateUser(ctx, email, string(hash), input.DisplayName, isAdmin)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			zap.L().Warn("registration failed, email already exists", zap.String("email", email))
			return AuthResult{}, ErrEmailAlreadyExists
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}
	zap.L().Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", user.Role()))

	return s.startSession(ctx, user)
}

// Login checks credentials and issues a fresh token pair. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || !passwordLengthOK(input.Password) {
		return AuthResult{}, ErrInvalidCredentials
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		zap.L().Warn("login failed, user not found", zap.String("email", email))
		return AuthResult{}, ErrInvalidCredentials
	case err != nil:
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		zap.L().Warn("login failed, invalid password", zap.String("user_id", user.ID.String()))
		return AuthResult{}, ErrInvalidCredentials
	}

	zap.L().Info("user logged in", zap.String("user_id", user.ID.String()))
	return s.startSession(ctx, user)
}

// Logout revokes a refresh token previously issued to the user.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return ErrUnauthorized
	}
	if err := s.store.RevokeToken(ctx, userID, hashRefreshToken(refreshToken, s.cfg.RefreshTokenSecret)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Me loads the current profile for an authenticated user id.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return user.SafeUser(), nil
}

// startSession issues tokens for user and persists the refresh token hash.
func (s *Service) startSession(ctx context.Context, user User) (AuthResult, error) {
	tokens, err := s.issueTokens(user)
	if err != nil {
		return AuthResult{}, err
	}

	hash := hashRefreshToken(tokens.RefreshToken, s.cfg.RefreshTokenSecret)
	if err := s.store.StoreRefreshToken(ctx, user.ID, hash, tokens.RefreshTokenExpiry); err != nil {
		return AuthResult{}, fmt.Errorf("store refresh token: %w", err)
	}

	return AuthResult{User: user.SafeUser(), Tokens: tokens}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func passwordLengthOK(password string) bool {
	return strings.TrimSpace(password) != "" &&
		len(password) >= minPasswordLength &&
		len(password) <= maxPasswordLength
}
