package http

import (
	"context"
	"net/http"
	"time"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/httpserver"
	"blockconnect/pkg/jwt"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/models"
	"blockconnect/services/notification/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type NotificationHandler struct {
	notificationUseCase usecase.NotificationUseCase
	redisClient         *redis.Client
	logger              *logger.Logger
	jwtService          *jwt.Service
}

func NewNotificationHandler(notificationUseCase usecase.NotificationUseCase, redisClient *redis.Client, logger *logger.Logger, jwtService *jwt.Service) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
		redisClient:         redisClient,
		logger:              logger,
		jwtService:          jwtService,
	}
}

type SendNotificationRequest struct {
	Recipient string            `json:"recipient" binding:"required"`
	Type      string            `json:"type" binding:"required"`
	Message   string            `json:"message" binding:"required"`
	Data      map[string]string `json:"data,omitempty"`
}

type BroadcastNotificationRequest struct {
	Recipients []string          `json:"recipients" binding:"required"`
	Type       string            `json:"type" binding:"required"`
	Message    string            `json:"message" binding:"required"`
	Data       map[string]string `json:"data,omitempty"`
}

func currentUser(c *gin.Context) (string, bool) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return username, true
}

// SendNotification godoc
// @Summary      Send a notification
// @Description  Notify a single user on behalf of the caller
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SendNotificationRequest true "Notification"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /notifications/send [post]
func (h *NotificationHandler) SendNotification(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notification, err := h.notificationUseCase.Notify(c.Request.Context(), req.Recipient, models.NotificationType(req.Type), req.Message, actor, req.Data)
	if err != nil {
		h.logger.Error("Failed to send notification: %v", err)
		apperr.Respond(c, err, "Failed to send notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Notification sent successfully",
		"delivered":    notification != nil,
		"notification": notification,
	})
}

// BroadcastNotification godoc
// @Summary      Broadcast a notification
// @Description  Notify several users on behalf of the caller
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body BroadcastNotificationRequest true "Notification"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /notifications/broadcast [post]
func (h *NotificationHandler) BroadcastNotification(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req BroadcastNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sentCount, err := h.notificationUseCase.FanOut(c.Request.Context(), req.Recipients, models.NotificationType(req.Type), req.Message, actor, req.Data)
	if err != nil {
		h.logger.Error("Failed to broadcast notification: %v", err)
		apperr.Respond(c, err, "Failed to broadcast notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Notifications sent successfully",
		"sent_count": sentCount,
	})
}

// GetNotifications godoc
// @Summary      Get user notifications
// @Description  Local notifications merged with the mirrored copy, newest first
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Number of notifications to return (max 100)"
// @Param        offset query int false "Offset for pagination"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	limit, offset := httpserver.Pagination(c, 50, 100)

	notifications, total, err := h.notificationUseCase.List(c.Request.Context(), user, limit, offset)
	if err != nil {
		h.logger.Error("Failed to get notifications: %v", err)
		apperr.Respond(c, err, "Failed to get notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
		"total":         total,
		"offset":        offset,
	})
}

// GetUnreadCount godoc
// @Summary      Unread notification count
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /notifications/unread [get]
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.notificationUseCase.UnreadCount(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("Failed to count notifications: %v", err)
		apperr.Respond(c, err, "Failed to count notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead godoc
// @Summary      Mark a notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.notificationUseCase.MarkRead(c.Request.Context(), user, c.Param("id")); err != nil {
		apperr.Respond(c, err, "Failed to mark notification read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead godoc
// @Summary      Mark every notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	changed, err := h.notificationUseCase.MarkAllRead(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("Failed to mark notifications read: %v", err)
		apperr.Respond(c, err, "Failed to mark notifications read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked as read", "updated": changed})
}

// DeleteNotification godoc
// @Summary      Delete a notification
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /notifications/{id} [delete]
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.notificationUseCase.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		apperr.Respond(c, err, "Failed to delete notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

// DeleteNotificationByPostID godoc
// @Summary      Delete notifications by post ID
// @Description  Delete the notifications about a post once the user has viewed it
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        post_id path string true "Post ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /notifications/post/{post_id} [delete]
func (h *NotificationHandler) DeleteNotificationByPostID(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	postID := c.Param("post_id")
	if postID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post ID required"})
		return
	}

	deletedCount, err := h.notificationUseCase.DeleteByPost(c.Request.Context(), user, postID)
	if err != nil {
		h.logger.Error("Failed to delete notification: %v", err)
		apperr.Respond(c, err, "Failed to delete notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification deleted",
		"deleted": deletedCount,
	})
}

// RefreshNotifications godoc
// @Summary      Restore notifications from the mirror
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /notifications/refresh [post]
func (h *NotificationHandler) RefreshNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	notifications, err := h.notificationUseCase.Refresh(c.Request.Context(), user)
	if err != nil {
		h.logger.Warn("Failed to refresh notifications of %s: %v", user, err)
		apperr.Respond(c, err, "Failed to refresh notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "total": len(notifications)})
}

// GetNotificationSettings godoc
// @Summary      Get notification settings for an actor
// @Description  Check whether notifications from a user are muted
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        actor path string true "Actor username"
// @Success      200  {object}  map[string]interface{}
// @Router       /notifications/settings/{actor} [get]
func (h *NotificationHandler) GetNotificationSettings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	muted, err := h.notificationUseCase.IsMuted(c.Request.Context(), user, c.Param("actor"))
	if err != nil {
		h.logger.Error("Failed to get notification settings: %v", err)
		apperr.Respond(c, err, "Failed to get settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"enabled": !muted})
}

// EnableNotifications godoc
// @Summary      Unmute an actor
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        actor path string true "Actor username"
// @Success      200  {object}  map[string]interface{}
// @Router       /notifications/settings/{actor} [post]
func (h *NotificationHandler) EnableNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.notificationUseCase.Unmute(c.Request.Context(), user, c.Param("actor")); err != nil {
		h.logger.Error("Failed to enable notifications: %v", err)
		apperr.Respond(c, err, "Failed to enable notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notifications enabled", "enabled": true})
}

// DisableNotifications godoc
// @Summary      Mute an actor
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        actor path string true "Actor username"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /notifications/settings/{actor} [delete]
func (h *NotificationHandler) DisableNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.notificationUseCase.Mute(c.Request.Context(), user, c.Param("actor")); err != nil {
		h.logger.Error("Failed to disable notifications: %v", err)
		apperr.Respond(c, err, "Failed to disable notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notifications disabled", "enabled": false})
}

// HandleWebSocket streams new notifications of the caller. Browsers cannot
// set headers on websocket requests, so the token may come as a query
// parameter.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	user := c.GetString("username")
	if user == "" {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
			return
		}

		claims, err := h.jwtService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		user = claims.Username
	}

	if user == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket connected for user %s", user)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redisClient.Subscribe(ctx, localstore.NotifyChannel(user))
	defer pubsub.Close()

	go h.pump(ctx, cancel, conn, pubsub.Channel())

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error: %v", err)
			}
			break
		}
	}

	h.logger.Info("WebSocket disconnected for user %s", user)
}

// pump forwards pub/sub payloads to the socket and keeps it alive with pings.
func (h *NotificationHandler) pump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, messages <-chan *redis.Message) {
	defer cancel()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.logger.Error("Failed to write WebSocket message: %v", err)
				conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}
		}
	}
}
