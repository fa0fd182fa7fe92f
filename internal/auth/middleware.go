package auth

import (
	"strings"

	"github.com/abduss/bugtrack/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "bugtrackerUser"

const notAuthorized = "Not authorized to access this route"

// ContextUser represents the authenticated principal stored in the request context.
type ContextUser struct {
	ID    string
	Email string
	Role  string
}

// IsAdmin reports whether the principal has the admin role.
func (u ContextUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AuthMiddleware validates bearer tokens and injects the authenticated user.
func AuthMiddleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			_ = c.Error(apperr.New(apperr.KindAuth, notAuthorized))
			c.Abort()
			return
		}

		claims, err := service.ValidateAccessToken(token)
		if err != nil {
			_ = c.Error(apperr.New(apperr.KindAuth, notAuthorized).Wrap(err))
			c.Abort()
			return
		}

		c.Set(string(userContextKey), ContextUser{
			ID:    claims.UserID.String(),
			Email: claims.Email,
			Role:  claims.Role,
		})

		c.Next()
	}
}

// RequireAdmin rejects authenticated users without the admin role. It must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			_ = c.Error(apperr.New(apperr.KindAuth, notAuthorized))
			c.Abort()
			return
		}
		if !user.IsAdmin() {
			_ = c.Error(apperr.New(apperr.KindPermission, "User role "+user.Role+" is not authorized to access this route"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser extracts the authenticated user from the context.
func CurrentUser(c *gin.Context) (ContextUser, bool) {
	value, exists := c.Get(string(userContextKey))
	if !exists {
		return ContextUser{}, false
	}
	user, ok := value.(ContextUser)
	return user, ok
}

// RequireUser fetches the authenticated user and parses the identifier.
func RequireUser(c *gin.Context) (uuid.UUID, ContextUser, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		return uuid.Nil, ContextUser{}, false
	}
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return uuid.Nil, ContextUser{}, false
	}
	return id, user, true
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
