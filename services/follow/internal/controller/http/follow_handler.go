package http

import (
	"net/http"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/logger"
	"blockconnect/services/follow/internal/entity"
	"blockconnect/services/follow/internal/usecase"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	followUseCase usecase.FollowUseCase
	logger        *logger.Logger
}

func NewFollowHandler(followUseCase usecase.FollowUseCase, logger *logger.Logger) *FollowHandler {
	return &FollowHandler{
		followUseCase: followUseCase,
		logger:        logger,
	}
}

// RequestFollow godoc
// @Summary      Request to follow a user
// @Tags         follow
// @Produce      json
// @Security     BearerAuth
// @Param        username path string true "User to follow"
// @Success      201  {object}  entity.FollowRequest
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /follow/{username} [post]
func (h *FollowHandler) RequestFollow(c *gin.Context) {
	address := c.GetString("user_id")
	username := c.GetString("username")
	if address == "" || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	target := c.Param("username")
	request, err := h.followUseCase.Request(c.Request.Context(), address, username, target)
	if err != nil {
		h.logger.Error("Failed to request follow of %s: %v", target, err)
		apperr.Respond(c, err, "Failed to send follow request")
		return
	}

	c.JSON(http.StatusCreated, request)
}

// AcceptFollow godoc
// @Summary      Accept a follow request
// @Tags         follow
// @Produce      json
// @Security     BearerAuth
// @Param        username path string true "User whose request is accepted"
// @Success      200  {object}  entity.FollowRequest
// @Failure      404  {object}  map[string]string
// @Router       /follow/{username}/accept [post]
func (h *FollowHandler) AcceptFollow(c *gin.Context) {
	address := c.GetString("user_id")
	username := c.GetString("username")
	if address == "" || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	from := c.Param("username")
	request, err := h.followUseCase.Accept(c.Request.Context(), address, username, from)
	if err != nil {
		h.logger.Error("Failed to accept follow request of %s: %v", from, err)
		apperr.Respond(c, err, "Failed to accept follow request")
		return
	}

	c.JSON(http.StatusOK, request)
}

// GetPending godoc
// @Summary      Pending follow requests of the current user
// @Tags         follow
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.Relations
// @Failure      503  {object}  map[string]string
// @Router       /follow/requests [get]
func (h *FollowHandler) GetPending(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	h.respond(c, "pending requests", func() (*entity.Relations, error) {
		return h.followUseCase.Pending(c.Request.Context(), username)
	})
}

// GetFollowers godoc
// @Summary      Followers of a user
// @Description  Served from cache with stale=true when the contract is unreachable
// @Tags         follow
// @Produce      json
// @Security     BearerAuth
// @Param        username path string true "Username"
// @Success      200  {object}  entity.Relations
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /users/{username}/followers [get]
func (h *FollowHandler) GetFollowers(c *gin.Context) {
	h.respond(c, "followers", func() (*entity.Relations, error) {
		return h.followUseCase.Followers(c.Request.Context(), c.Param("username"))
	})
}

// GetFollowing godoc
// @Summary      Users a user follows
// @Description  Served from cache with stale=true when the contract is unreachable
// @Tags         follow
// @Produce      json
// @Security     BearerAuth
// @Param        username path string true "Username"
// @Success      200  {object}  entity.Relations
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /users/{username}/following [get]
func (h *FollowHandler) GetFollowing(c *gin.Context) {
	h.respond(c, "following", func() (*entity.Relations, error) {
		return h.followUseCase.Following(c.Request.Context(), c.Param("username"))
	})
}

func (h *FollowHandler) respond(c *gin.Context, what string, read func() (*entity.Relations, error)) {
	relations, err := read()
	if err != nil {
		h.logger.Error("Failed to get %s: %v", what, err)
		apperr.Respond(c, err, "Failed to get "+what)
		return
	}
	c.JSON(http.StatusOK, relations)
}
