package http

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/logger"
	"blockconnect/services/auth/internal/entity"
	"blockconnect/services/auth/internal/usecase"

	"github.com/gin-gonic/gin"
)

const maxAvatarSize = 5 << 20

type AuthHandler struct {
	authUseCase usecase.AuthUseCase
	logger      *logger.Logger
}

func NewAuthHandler(authUseCase usecase.AuthUseCase, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		logger:      logger,
	}
}

type LoginRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type RegisterRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Username  string `json:"username" binding:"required,min=3,max=32"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

// Nonce godoc
// @Summary      Get a sign-in message
// @Description  Issues a single-use nonce for the address and returns the text the wallet must sign. The nonce expires after 5 minutes.
// @Tags         auth
// @Produce      json
// @Param        address path string true "Wallet address"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /nonce/{address} [get]
func (h *AuthHandler) Nonce(c *gin.Context) {
	address := c.Param("address")
	message, err := h.authUseCase.Nonce(c.Request.Context(), address)
	if err != nil {
		apperr.Respond(c, err, "Failed to issue nonce")
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": strings.ToLower(address), "message": message})
}

// Register godoc
// @Summary      Register a wallet
// @Description  Binds the wallet address to a unique username on the contract
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201  {object}  AuthResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.authUseCase.Register(c.Request.Context(), req.Address, req.Signature, req.Username)
	if err != nil {
		h.logger.Error("Failed to register %s: %v", req.Address, err)
		apperr.Respond(c, err, "Failed to register")
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Token: token,
		User:  user,
	})
}

// Login godoc
// @Summary      Login with a wallet signature
// @Description  Verifies the personal signature over the issued nonce and returns a JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Signed nonce"
// @Success      200  {object}  AuthResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.authUseCase.Login(c.Request.Context(), req.Address, req.Signature)
	if err != nil {
		apperr.Respond(c, err, "Failed to login")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		User:  user,
	})
}

// Me godoc
// @Summary      Get current user info
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.User
// @Failure      401  {object}  map[string]string
// @Router       /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	address := c.GetString("user_id")
	if address == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.authUseCase.Me(c.Request.Context(), address)
	if err != nil {
		apperr.Respond(c, err, "Failed to load user")
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetUser godoc
// @Summary      Get user by username
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        username path string true "Username"
// @Success      200  {object}  entity.User
// @Failure      404  {object}  map[string]string
// @Router       /users/{username} [get]
func (h *AuthHandler) GetUser(c *gin.Context) {
	user, err := h.authUseCase.GetUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		apperr.Respond(c, err, "Failed to load user")
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsernames godoc
// @Summary      List registered usernames
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /users [get]
func (h *AuthHandler) ListUsernames(c *gin.Context) {
	usernames, err := h.authUseCase.ListUsernames(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list usernames: %v", err)
		apperr.Respond(c, err, "Failed to list usernames")
		return
	}

	c.JSON(http.StatusOK, gin.H{"usernames": usernames, "count": len(usernames)})
}

// UpdateProfile godoc
// @Summary      Update the current user's profile
// @Tags         auth
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        bio formData string false "Bio"
// @Param        avatar formData file false "Avatar image file"
// @Success      200  {object}  entity.User
// @Failure      400  {object}  map[string]string
// @Router       /profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	address := c.GetString("user_id")
	if address == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var avatar []byte
	if file, err := c.FormFile("avatar"); err == nil {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".gif" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image format. Only jpg, jpeg, png, gif are allowed"})
			return
		}
		if file.Size > maxAvatarSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar must be at most 5MB"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
			return
		}
		defer src.Close()

		avatar, err = io.ReadAll(io.LimitReader(src, maxAvatarSize))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
			return
		}
	}

	user, err := h.authUseCase.UpdateProfile(c.Request.Context(), address, c.PostForm("bio"), avatar)
	if err != nil {
		h.logger.Error("Failed to update profile of %s: %v", address, err)
		apperr.Respond(c, err, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, user)
}
