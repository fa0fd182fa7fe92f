package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/abduss/bugtrack/internal/apperr"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts authentication endpoints under /auth.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", handler.register)
		authGroup.POST("/login", handler.login)

		private := authGroup.Group("", AuthMiddleware(service))
		private.GET("/me", handler.me)
		private.POST("/logout", handler.logout)
	}
}

type httpHandler struct {
	service *Service
}

type registerRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=128"`
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8,max=72"`
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      *string    `json:"name,omitempty"`
	Role      string     `json:"role"`
	IsAdmin   bool       `json:"is_admin"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type tokensResponse struct {
	AccessToken        string `json:"access_token"`
	AccessTokenExpiry  int64  `json:"access_token_expires_at"`
	RefreshToken       string `json:"refresh_token"`
	RefreshTokenExpiry int64  `json:"refresh_token_expires_at"`
}

// AuthResponse is the body returned by register and login.
type AuthResponse struct {
	Success bool           `json:"success"`
	Token   string         `json:"token"`
	User    userResponse   `json:"user"`
	Tokens  tokensResponse `json:"tokens"`
}

func (h *httpHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.FromBinding(err))
		return
	}

	name := req.DisplayName
	if name == nil {
		name = req.Name
	}
	result, err := h.service.Register(c.Request.Context(), RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: name,
	})
	if err != nil {
		_ = c.Error(classify(err))
		return
	}

	c.JSON(http.StatusCreated, marshalAuthResponse(result))
}

func (h *httpHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.FromBinding(err))
		return
	}

	result, err := h.service.Login(c.Request.Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		_ = c.Error(classify(err))
		return
	}

	c.JSON(http.StatusOK, marshalAuthResponse(result))
}

func (h *httpHandler) me(c *gin.Context) {
	userID, _, ok := RequireUser(c)
	if !ok {
		_ = c.Error(classify(ErrUnauthorized))
		return
	}

	user, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(classify(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": marshalUser(user)})
}

func (h *httpHandler) logout(c *gin.Context) {
	userID, _, ok := RequireUser(c)
	if !ok {
		_ = c.Error(classify(ErrUnauthorized))
		return
	}

	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.FromBinding(err))
		return
	}

	if err := h.service.Logout(c.Request.Context(), userID, req.RefreshToken); err != nil {
		_ = c.Error(classify(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

// classify maps auth sentinels onto client-visible error kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrEmailAlreadyExists):
		return apperr.New(apperr.KindConflict, "User already exists with this email").Wrap(err)
	case errors.Is(err, ErrInvalidCredentials):
		return apperr.New(apperr.KindAuth, "Invalid credentials").Wrap(err)
	case errors.Is(err, ErrUnauthorized):
		return apperr.New(apperr.KindAuth, notAuthorized).Wrap(err)
	case errors.Is(err, ErrUserNotFound):
		return apperr.New(apperr.KindNotFound, "User not found").Wrap(err)
	default:
		return err
	}
}

func marshalUser(user User) userResponse {
	resp := userResponse{
		ID:      user.ID.String(),
		Email:   user.Email,
		Name:    user.DisplayName,
		Role:    user.Role(),
		IsAdmin: user.IsAdmin,
	}
	if !user.CreatedAt.IsZero() {
		created := user.CreatedAt.UTC()
		resp.CreatedAt = &created
	}
	return resp
}

func marshalAuthResponse(result AuthResult) AuthResponse {
	return AuthResponse{
		Success: true,
		Token:   result.Tokens.AccessToken,
		User:    marshalUser(result.User),
		Tokens: tokensResponse{
			AccessToken:        result.Tokens.AccessToken,
			AccessTokenExpiry:  result.Tokens.AccessTokenExpiry.Unix(),
			RefreshToken:       result.Tokens.RefreshToken,
			RefreshTokenExpiry: result.Tokens.RefreshTokenExpiry.Unix(),
		},
	}
}
