package auth

import (
	"context"
	"testing"
	"time"

	"github.com/abduss/bugtrack/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		BcryptCost:         4,
		AdminEmails:        []string{"admin@example.com"},
	}
}

func TestRegisterSuccess(t *testing.T) {
	store := NewMemoryStore()

	service := NewService(store, testConfig())
	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "User@Example.com",
		Password: "StrongPass1!",
	})

	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if result.User.PasswordHash != "" {
		t.Fatalf("expected password hash to be stripped from response")
	}

	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued")
	}

	if _, ok := store.users["user@example.com"]; !ok {
		t.Fatalf("expected user stored under normalized email; got %v", store.users)
	}
	if result.User.IsAdmin {
		t.Fatalf("expected regular user")
	}
}

func TestRegisterGrantsAdminToConfiguredEmails(t *testing.T) {
	service := NewService(NewMemoryStore(), testConfig())

	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "admin@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	if !result.User.IsAdmin || result.User.Role() != RoleAdmin {
		t.Fatalf("expected admin role, got %+v", result.User)
	}

	claims, err := service.ValidateAccessToken(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if !claims.IsAdmin() {
		t.Fatalf("expected admin claim in access token")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service := NewService(NewMemoryStore(), testConfig())
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("initial registration returned error: %v", err)
	}

	_, err = service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "AnotherPass2!",
	})

	if err == nil || err != ErrEmailAlreadyExists {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	service := NewService(NewMemoryStore(), testConfig())
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	result, err := service.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})

	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}

	if result.Tokens.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	if result.Tokens.RefreshToken == "" {
		t.Fatalf("expected refresh token")
	}
}

func TestLoginInvalidPassword(t *testing.T) {
	service := NewService(NewMemoryStore(), testConfig())
	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	_, err = service.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "WrongPass",
	})

	if err == nil || err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	service := NewService(NewMemoryStore(), testConfig())

	_, err := service.Login(context.Background(), LoginInput{
		Email:    "ghost@example.com",
		Password: "StrongPass1!",
	})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateAccessTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	store := NewMemoryStore()
	service := NewService(store, testConfig())
	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	other := testConfig()
	other.AccessTokenSecret = "another-secret"
	if _, err := NewService(store, other).ValidateAccessToken(result.Tokens.AccessToken); err != ErrUnauthorized {
		t.Fatalf("expected token signed with another secret to be rejected, got %v", err)
	}

	service.nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := service.ValidateAccessToken(result.Tokens.AccessToken); err != ErrUnauthorized {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	if _, err := service.ValidateAccessToken("   "); err != ErrUnauthorized {
		t.Fatalf("expected blank token to be rejected, got %v", err)
	}
}

func TestMe(t *testing.T) {
	service := NewService(NewMemoryStore(), testConfig())
	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	user, err := service.Me(context.Background(), result.User.ID)
	if err != nil {
		t.Fatalf("me returned error: %v", err)
	}
	if user.Email != "user@example.com" || user.PasswordHash != "" {
		t.Fatalf("unexpected profile %+v", user)
	}

	if _, err := service.Me(context.Background(), uuid.New()); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	store := NewMemoryStore()
	service := NewService(store, testConfig())
	result, err := service.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "StrongPass1!",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if err := service.Logout(context.Background(), result.User.ID, result.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout returned error: %v", err)
	}

	key := tokenKey(result.User.ID, hashRefreshToken(result.Tokens.RefreshToken, "refresh-secret"))
	if !store.refreshTokens[key].revoked {
		t.Fatalf("expected refresh token to be revoked")
	}

	if err := service.Logout(context.Background(), result.User.ID, ""); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for blank token, got %v", err)
	}
}

func TestValidateAccessTokenChecksAudienceAndExpiry(t *testing.T) {
	service := NewService(NewMemoryStore(), testConfig())
	sign := func(claims accessClaims) string {
		t.Helper()
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return signed
	}

	valid := accessClaims{
		Email: "forged@example.com",
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   uuid.NewString(),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	if claims, err := service.ValidateAccessToken(sign(valid)); err != nil || !claims.IsAdmin() {
		t.Fatalf("expected well-formed token to validate, got %+v, %v", claims, err)
	}

	otherAudience := valid
	otherAudience.Audience = jwt.ClaimStrings{"another-api"}
	if _, err := service.ValidateAccessToken(sign(otherAudience)); err != ErrUnauthorized {
		t.Fatalf("expected foreign audience to be rejected, got %v", err)
	}

	noExpiry := valid
	noExpiry.ExpiresAt = nil
	if _, err := service.ValidateAccessToken(sign(noExpiry)); err != ErrUnauthorized {
		t.Fatalf("expected token without expiry to be rejected, got %v", err)
	}
}
