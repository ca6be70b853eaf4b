package http

import (
	"net/http"
	"strconv"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/logger"
	"blockconnect/services/message/internal/usecase"

	"github.com/gin-gonic/gin"
)

const (
	defaultConversationLimit = 50
	maxConversationLimit     = 500
)

type MessageHandler struct {
	messageUseCase usecase.MessageUseCase
	logger         *logger.Logger
}

func NewMessageHandler(messageUseCase usecase.MessageUseCase, logger *logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
		logger:         logger,
	}
}

type SendMessageRequest struct {
	To      string `json:"to" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func currentUser(c *gin.Context) (string, bool) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return username, true
}

// SendMessage godoc
// @Summary      Send a direct message
// @Description  Stores the message and notifies the recipient. A failed delivery is returned with status "failed" and can be retried.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SendMessageRequest true "Message"
// @Success      201  {object}  models.Message
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageUseCase.Send(c.Request.Context(), user, req.To, req.Content)
	if err != nil {
		h.logger.Error("Failed to send message: %v", err)
		apperr.Respond(c, err, "Failed to send message")
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// RetryMessage godoc
// @Summary      Retry a failed message
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Message ID"
// @Success      200  {object}  models.Message
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /messages/retry/{id} [post]
func (h *MessageHandler) RetryMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	msg, err := h.messageUseCase.Retry(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		apperr.Respond(c, err, "Failed to retry message")
		return
	}

	c.JSON(http.StatusOK, msg)
}

// GetConversation godoc
// @Summary      Messages exchanged with a peer
// @Description  Local messages merged with the mirrored copy, newest first
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        peer path string true "Peer username"
// @Param        limit query int false "Number of messages to return (max 500)"
// @Success      200  {object}  map[string]interface{}
// @Router       /messages/with/{peer} [get]
func (h *MessageHandler) GetConversation(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultConversationLimit)))
	if err != nil || limit <= 0 || limit > maxConversationLimit {
		limit = defaultConversationLimit
	}

	peer := c.Param("peer")
	msgs, err := h.messageUseCase.Conversation(c.Request.Context(), user, peer, limit)
	if err != nil {
		h.logger.Error("Failed to get conversation with %s: %v", peer, err)
		apperr.Respond(c, err, "Failed to get conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"peer":     peer,
		"messages": msgs,
		"count":    len(msgs),
	})
}

// GetConversations godoc
// @Summary      List conversations
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /messages/conversations [get]
func (h *MessageHandler) GetConversations(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	conversations, err := h.messageUseCase.Conversations(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("Failed to list conversations: %v", err)
		apperr.Respond(c, err, "Failed to list conversations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// MarkConversationRead godoc
// @Summary      Mark a conversation read
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        peer path string true "Peer username"
// @Success      200  {object}  map[string]interface{}
// @Router       /messages/with/{peer}/read [post]
func (h *MessageHandler) MarkConversationRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	changed, err := h.messageUseCase.MarkRead(c.Request.Context(), user, c.Param("peer"))
	if err != nil {
		apperr.Respond(c, err, "Failed to mark conversation read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation marked as read", "updated": changed})
}

// GetUnreadCount godoc
// @Summary      Unread message count
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /messages/unread [get]
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.messageUseCase.UnreadCount(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("Failed to count messages: %v", err)
		apperr.Respond(c, err, "Failed to count messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}
