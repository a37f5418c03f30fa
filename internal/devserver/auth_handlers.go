package devserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/auth"
	"github.com/sharanperla/Greenleaf-client/internal/proto"
)

// AuthHandlers serves the account endpoints.
type AuthHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAuthHandlers creates a new auth handlers instance.
func NewAuthHandlers(authService *auth.Service, logger *zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		log:         logger,
	}
}

// Register handles user registration.
// POST /api/auth/register/
func (h *AuthHandlers) Register(c *gin.Context) {
	var req proto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, proto.ErrorResponse{Error: "user already exists"})
		return
	case errors.Is(err, auth.ErrInvalidUsername):
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "username must be 3 to 32 characters"})
		return
	case errors.Is(err, auth.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "password must be at least 6 characters"})
		return
	case errors.Is(err, auth.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid email"})
		return
	case err != nil:
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("username", user.Username).Msg("user registered successfully")
	c.JSON(http.StatusCreated, userPayload(user))
}

// Login handles user login.
// POST /api/auth/login/
func (h *AuthHandlers) Login(c *gin.Context) {
	var req proto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid request body"})
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, proto.ErrorResponse{Error: "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("username", req.Username).Msg("user logged in successfully")
	c.JSON(http.StatusOK, proto.TokenResponse{Access: pair.Access, Refresh: pair.Refresh})
}

// Refresh exchanges a refresh token for a new access token.
// POST /api/auth/refresh/
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req proto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid request body"})
		return
	}

	access, err := h.authService.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		h.log.Debug().Err(err).Msg("refresh rejected")
		c.JSON(http.StatusUnauthorized, proto.ErrorResponse{Error: "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, proto.TokenResponse{Access: access})
}

// Me returns the authenticated account.
// GET /api/auth/me/
func (h *AuthHandlers) Me(c *gin.Context) {
	uid, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, proto.ErrorResponse{Error: "unauthorized"})
		return
	}
	user, err := h.authService.User(c.Request.Context(), uid)
	if err != nil {
		h.log.Debug().Err(err).Int64("user_id", uid).Msg("token user not found")
		c.JSON(http.StatusUnauthorized, proto.ErrorResponse{Error: "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, userPayload(user))
}
