package http

import (
	"net/http"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/httpserver"
	"blockconnect/pkg/logger"
	"blockconnect/services/interaction/internal/usecase"

	"github.com/gin-gonic/gin"
)

type InteractionHandler struct {
	interactionUseCase usecase.InteractionUseCase
	logger             *logger.Logger
}

func NewInteractionHandler(interactionUseCase usecase.InteractionUseCase, logger *logger.Logger) *InteractionHandler {
	return &InteractionHandler{
		interactionUseCase: interactionUseCase,
		logger:             logger,
	}
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// LikePost godoc
// @Summary      Like or unlike a post
// @Description  Toggles the like of the current user on the contract
// @Tags         interactions
// @Produce      json
// @Security     BearerAuth
// @Param        post_id path string true "Post ID"
// @Success      200  {object}  entity.LikeState
// @Failure      404  {object}  map[string]string
// @Router       /posts/{post_id}/like [post]
func (h *InteractionHandler) LikePost(c *gin.Context) {
	address := c.GetString("user_id")
	username := c.GetString("username")
	if address == "" || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	state, err := h.interactionUseCase.Like(c.Request.Context(), address, username, c.Param("post_id"))
	if err != nil {
		h.logger.Error("Failed to like post: %v", err)
		apperr.Respond(c, err, "Failed to like post")
		return
	}

	c.JSON(http.StatusOK, state)
}

// GetLikes godoc
// @Summary      Users who like a post
// @Tags         interactions
// @Produce      json
// @Security     BearerAuth
// @Param        post_id path string true "Post ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /posts/{post_id}/likes [get]
func (h *InteractionHandler) GetLikes(c *gin.Context) {
	postID := c.Param("post_id")
	users, err := h.interactionUseCase.Likes(c.Request.Context(), postID)
	if err != nil {
		apperr.Respond(c, err, "Failed to get likes")
		return
	}

	c.JSON(http.StatusOK, gin.H{"post_id": postID, "users": users, "count": len(users)})
}

// IsLiked godoc
// @Summary      Whether the current user likes a post
// @Tags         interactions
// @Produce      json
// @Security     BearerAuth
// @Param        post_id path string true "Post ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /posts/{post_id}/liked [get]
func (h *InteractionHandler) IsLiked(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	postID := c.Param("post_id")
	liked, err := h.interactionUseCase.IsLiked(c.Request.Context(), username, postID)
	if err != nil {
		apperr.Respond(c, err, "Failed to check like")
		return
	}

	c.JSON(http.StatusOK, gin.H{"post_id": postID, "liked": liked})
}

// GetLikedPosts godoc
// @Summary      Posts the current user likes
// @Tags         interactions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /likes [get]
func (h *InteractionHandler) GetLikedPosts(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	posts, err := h.interactionUseCase.LikedPosts(c.Request.Context(), username)
	if err != nil {
		apperr.Respond(c, err, "Failed to get liked posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

// CreateComment godoc
// @Summary      Comment on a post
// @Tags         interactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        post_id path string true "Post ID"
// @Param        request body CreateCommentRequest true "Comment"
// @Success      201  {object}  entity.Comment
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /posts/{post_id}/comments [post]
func (h *InteractionHandler) CreateComment(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.interactionUseCase.AddComment(c.Request.Context(), username, c.Param("post_id"), req.Content)
	if err != nil {
		h.logger.Error("Failed to create comment: %v", err)
		apperr.Respond(c, err, "Failed to create comment")
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// GetComments godoc
// @Summary      Comments of a post
// @Description  Oldest first
// @Tags         interactions
// @Produce      json
// @Security     BearerAuth
// @Param        post_id path string true "Post ID"
// @Param        limit query int false "Page size" default(50)
// @Param        offset query int false "Offset" default(0)
// @Success      200  {object}  map[string]interface{}
// @Router       /posts/{post_id}/comments [get]
func (h *InteractionHandler) GetComments(c *gin.Context) {
	postID := c.Param("post_id")
	limit, offset := httpserver.Pagination(c, 50, 100)

	comments, total, err := h.interactionUseCase.Comments(c.Request.Context(), postID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to get comments: %v", err)
		apperr.Respond(c, err, "Failed to get comments")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}
