package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer        = "bugtracker"
	tokenAudience      = "bugtracker-api"
	refreshTokenLength = 48
)

// accessClaims is the payload of an access token.
type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// UserClaims describes the validated identity extracted from an access token.
type UserClaims struct {
	UserID    uuid.UUID
	Email     string
	Role      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// IsAdmin reports whether the token carries the admin role.
func (c UserClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// ValidateAccessToken verifies signature, issuer, audience and expiry, then returns the claims.
// Every failure maps to ErrUnauthorized.
func (s *Service) ValidateAccessToken(tokenString string) (UserClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return UserClaims{}, ErrUnauthorized
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFunc),
	)

	var claims accessClaims
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.AccessTokenSecret), nil
	}); err != nil {
		return UserClaims{}, ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return UserClaims{}, ErrUnauthorized
	}

	out := UserClaims{
		UserID:    userID,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func (s *Service) issueTokens(user User) (TokenPair, error) {
	now := s.nowFunc()
	pair := TokenPair{
		AccessTokenExpiry:  now.Add(s.cfg.AccessTokenTTL),
		RefreshTokenExpiry: now.Add(s.cfg.RefreshTokenTTL),
	}

	claims := accessClaims{
		Email: user.Email,
		Role:  user.Role(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(pair.AccessTokenExpiry),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.AccessTokenSecret))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	pair.AccessToken = signed

	raw := make([]byte, refreshTokenLength)
	if _, err := rand.Read(raw); err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	pair.RefreshToken = base64.RawURLEncoding.EncodeToString(raw)

	return pair, nil
}

// hashRefreshToken is the form refresh tokens are persisted in.
func hashRefreshToken(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
