package http

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/httpserver"
	"blockconnect/pkg/logger"
	"blockconnect/services/post/internal/usecase"

	"github.com/gin-gonic/gin"
)

const maxImageSize = 10 << 20

type PostHandler struct {
	postUseCase usecase.PostUseCase
	logger      *logger.Logger
}

func NewPostHandler(postUseCase usecase.PostUseCase, logger *logger.Logger) *PostHandler {
	return &PostHandler{
		postUseCase: postUseCase,
		logger:      logger,
	}
}

// CreatePost godoc
// @Summary      Create a post
// @Description  Stores the post body in the content store and indexes it on the contract
// @Tags         posts
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        content formData string false "Post text"
// @Param        image formData file false "Image"
// @Success      201  {object}  entity.Post
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /posts [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	address := c.GetString("user_id")
	username := c.GetString("username")
	if address == "" || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var image []byte
	if file, err := c.FormFile("image"); err == nil {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".gif" && ext != ".webp" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image format. Only jpg, jpeg, png, gif, webp are allowed"})
			return
		}
		if file.Size > maxImageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Image must be at most 10MB"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
			return
		}
		defer src.Close()

		if image, err = io.ReadAll(io.LimitReader(src, maxImageSize)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
			return
		}
	}

	post, err := h.postUseCase.CreatePost(c.Request.Context(), address, username, c.PostForm("content"), image)
	if err != nil {
		h.logger.Error("Failed to create post: %v", err)
		apperr.Respond(c, err, "Failed to create post")
		return
	}

	c.JSON(http.StatusCreated, post)
}

// GetPost godoc
// @Summary      Get a post
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Post ID"
// @Success      200  {object}  entity.Post
// @Failure      404  {object}  map[string]string
// @Router       /posts/{id} [get]
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.postUseCase.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err, "Failed to get post")
		return
	}

	c.JSON(http.StatusOK, post)
}

// GetUserPosts godoc
// @Summary      Posts of a user
// @Description  Every post of the user, newest first
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        username path string true "Username"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /users/{username}/posts [get]
func (h *PostHandler) GetUserPosts(c *gin.Context) {
	username := c.Param("username")
	posts, err := h.postUseCase.PostsByUser(c.Request.Context(), username)
	if err != nil {
		h.logger.Error("Failed to get posts of %s: %v", username, err)
		apperr.Respond(c, err, "Failed to get posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

// GetFeed godoc
// @Summary      Home feed
// @Description  Posts of the users the caller follows and the caller's own, newest first
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Page size" default(20)
// @Param        offset query int false "Offset" default(0)
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /feed [get]
func (h *PostHandler) GetFeed(c *gin.Context) {
	address := c.GetString("user_id")
	username := c.GetString("username")
	if address == "" || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, offset := httpserver.Pagination(c, 20, 100)
	posts, total, err := h.postUseCase.Feed(c.Request.Context(), address, username, limit, offset)
	if err != nil {
		h.logger.Error("Failed to get feed of %s: %v", username, err)
		apperr.Respond(c, err, "Failed to get feed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":  posts,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
